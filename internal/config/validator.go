package config

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/go-cumin/cumin/pkg/cuminerr"
)

var (
	validatorOnce sync.Once
	validateInst  *validator.Validate

	ratioOrCountPattern = regexp.MustCompile(`^\d+(\.\d+)?%?$`)
)

// validatorInstance configures and returns the shared validator
// instance used across the config package.
func validatorInstance() *validator.Validate {
	validatorOnce.Do(func() {
		v := validator.New()

		_ = v.RegisterValidation("puppetdb_api_version", func(fl validator.FieldLevel) bool {
			n := fl.Field().Int()
			return n == 3 || n == 4
		})

		_ = v.RegisterValidation("ratio_or_count", func(fl validator.FieldLevel) bool {
			return ratioOrCountPattern.MatchString(fl.Field().String())
		})

		validateInst = v
	})

	return validateInst
}

// Validate performs struct-tag validation on cfg, then the
// cross-field checks struct tags cannot express.
func Validate(cfg *Config) error {
	if cfg == nil {
		return cuminerr.NewConfigError("configuration is nil", nil)
	}

	v := validatorInstance()
	if err := v.Struct(cfg); err != nil {
		return convertValidationError(err)
	}

	if cfg.DefaultBackend != "" && cfg.DefaultBackend != strings.ToUpper(cfg.DefaultBackend) {
		return cuminerr.NewConfigError(
			fmt.Sprintf("default_backend %q must be an uppercase single-letter prefix", cfg.DefaultBackend), nil)
	}

	if cfg.SuccessThreshold != "" && !ratioOrCountPattern.MatchString(cfg.SuccessThreshold) {
		return cuminerr.NewConfigError(
			fmt.Sprintf("success_threshold %q must be a ratio (0.8) or a percentage (80%%)", cfg.SuccessThreshold), nil)
	}

	return nil
}

func convertValidationError(err error) error {
	if err == nil {
		return nil
	}

	if ves, ok := err.(validator.ValidationErrors); ok {
		ve := ves[0]
		field := yamlishFieldName(ve)
		return cuminerr.NewConfigError(
			fmt.Sprintf("%s failed validation for tag %q", field, ve.Tag()), err)
	}

	return cuminerr.NewConfigError(err.Error(), err)
}

func yamlishFieldName(fe validator.FieldError) string {
	ns := fe.StructNamespace()
	parts := strings.Split(ns, ".")
	lowered := make([]string, 0, len(parts))
	for _, part := range parts {
		lowered = append(lowered, strings.ToLower(part))
	}
	return strings.Join(lowered, ".")
}
