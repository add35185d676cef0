// Package config loads and validates Cumin's configuration: the main
// config.yaml (transport, execution defaults, backend connection
// settings) and the adjacent aliases.yaml (named query fragments).
//
// Grounded on the teacher's internal/config/{parser,types,validator}.go
// trio: struct-tag validation via github.com/go-playground/validator/v10,
// YAML unmarshalling via gopkg.in/yaml.v3, and line-number-aware parse
// errors extracted from yaml.v3's error strings.
package config

// Config is the root of config.yaml. Backend-specific sections
// (PuppetDB, OpenStack, KnownHosts) are typed structs here; Section()
// flattens each one back into the map[string]any that the matching
// backend constructor (internal/backend/*) reads its settings from.
type Config struct {
	Transport      string            `yaml:"transport" validate:"omitempty,oneof=clustershell"`
	DefaultBackend string            `yaml:"default_backend" validate:"omitempty,len=1"`
	LogFile        string            `yaml:"log_file"`
	Environment    map[string]string `yaml:"environment"`

	Mode             string  `yaml:"mode" validate:"omitempty,oneof=sync async"`
	BatchSize        string  `yaml:"batch_size" validate:"omitempty,ratio_or_count"`
	BatchSleep       float64 `yaml:"batch_sleep" validate:"gte=0"`
	Timeout          float64 `yaml:"timeout" validate:"gte=0"`
	GlobalTimeout    float64 `yaml:"global_timeout" validate:"gte=0"`
	SuccessThreshold string  `yaml:"success_threshold" validate:"omitempty"`

	PuppetDB     PuppetDBConfig     `yaml:"puppetdb"`
	OpenStack    OpenStackConfig    `yaml:"openstack"`
	KnownHosts   KnownHostsConfig   `yaml:"knownhosts"`
	ClusterShell ClusterShellConfig `yaml:"clustershell"`
	Kerberos     KerberosConfig     `yaml:"kerberos"`
	Plugins      PluginsConfig      `yaml:"plugins"`
}

// PuppetDBConfig configures the PuppetDB backend (internal/backend/puppetdb).
type PuppetDBConfig struct {
	Host                   string  `yaml:"host"`
	Port                   int     `yaml:"port"`
	Scheme                 string  `yaml:"scheme" validate:"omitempty,oneof=http https"`
	APIVersion             int     `yaml:"api_version" validate:"omitempty,puppetdb_api_version"`
	Timeout                float64 `yaml:"timeout" validate:"gte=0"`
	SSLVerify              *bool   `yaml:"ssl_verify"`
	SSLClientCert          string  `yaml:"ssl_client_cert"`
	SSLClientKey           string  `yaml:"ssl_client_key"`
	URLLib3DisableWarnings bool    `yaml:"urllib3_disable_warnings"`
}

// OpenStackConfig configures the OpenStack backend (internal/backend/openstack).
type OpenStackConfig struct {
	AuthURL       string         `yaml:"auth_url"`
	Username      string         `yaml:"username"`
	Password      string         `yaml:"password"`
	DomainSuffix  string         `yaml:"domain_suffix"`
	NovaAPIVersion string        `yaml:"nova_api_version"`
	Timeout       float64        `yaml:"timeout" validate:"gte=0"`
	ClientParams  map[string]any `yaml:"client_params"`
	QueryParams   map[string]any `yaml:"query_params"`
}

// KnownHostsConfig configures the known_hosts backend (internal/backend/knownhosts).
type KnownHostsConfig struct {
	Files []string `yaml:"files"`
}

// ClusterShellConfig configures the SSH-based fanout transport layer.
type ClusterShellConfig struct {
	SSHOptions []string `yaml:"ssh_options"`
	Fanout     int      `yaml:"fanout" validate:"omitempty,gt=0"`
}

// KerberosConfig controls the optional Kerberos ticket preflight.
type KerberosConfig struct {
	EnsureTicket     bool `yaml:"ensure_ticket"`
	EnsureTicketRoot bool `yaml:"ensure_ticket_root"`
}

// PluginsConfig names external backend modules. Cumin's Go rendition
// has no dynamic module loader (see DESIGN.md); a PluginBackend entry
// only records the prefix/name a deployment expects to be registered
// out-of-process, it is never resolved by this package.
type PluginsConfig struct {
	Backends []PluginBackend `yaml:"backends" validate:"omitempty,dive"`
}

// PluginBackend names one externally-supplied backend.
type PluginBackend struct {
	Name   string `yaml:"name" validate:"required"`
	Prefix string `yaml:"prefix" validate:"required,len=1"`
	Module string `yaml:"module" validate:"required"`
}

// Section returns cfg's raw backend-facing view as a map[string]any,
// the shape internal/backend/{puppetdb,openstack,knownhosts}.New
// expect for their configuration section. Cumin's backends were built
// against a generic config map rather than typed structs so a plugin
// backend (Plugins) can be handed the same shape without this package
// knowing its fields.
func (c *Config) Section() map[string]any {
	puppetdb := map[string]any{}
	putString(puppetdb, "url_scheme", c.PuppetDB.Scheme)
	putString(puppetdb, "host", c.PuppetDB.Host)
	putInt(puppetdb, "port", c.PuppetDB.Port)
	putInt(puppetdb, "api_version", c.PuppetDB.APIVersion)
	putString(puppetdb, "ssl_client_cert", c.PuppetDB.SSLClientCert)
	putString(puppetdb, "ssl_client_key", c.PuppetDB.SSLClientKey)
	if c.PuppetDB.Timeout != 0 {
		puppetdb["timeout"] = c.PuppetDB.Timeout
	}
	// ssl_verify defaults to true in the backend itself, so only
	// override it when config.yaml actually set the key.
	if c.PuppetDB.SSLVerify != nil {
		puppetdb["ssl_verify"] = *c.PuppetDB.SSLVerify
	}
	if c.PuppetDB.URLLib3DisableWarnings {
		puppetdb["tls_insecure_skip_verify_warnings_silenced"] = true
	}

	openstack := map[string]any{}
	putString(openstack, "auth_url", c.OpenStack.AuthURL)
	putString(openstack, "username", c.OpenStack.Username)
	putString(openstack, "password", c.OpenStack.Password)
	putString(openstack, "domain_suffix", c.OpenStack.DomainSuffix)

	return map[string]any{
		"puppetdb":   puppetdb,
		"openstack":  openstack,
		"knownhosts": map[string]any{"files": stringsToAny(c.KnownHosts.Files)},
	}
}

// putString/putInt only set key when v is non-zero, so an unset config
// field leaves the backend's own default in place instead of clobbering
// it with Go's zero value.
func putString(m map[string]any, key, v string) {
	if v != "" {
		m[key] = v
	}
}

func putInt(m map[string]any, key string, v int) {
	if v != 0 {
		m[key] = v
	}
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// Aliases is the parsed aliases.yaml: alias name -> query string.
type Aliases map[string]string
