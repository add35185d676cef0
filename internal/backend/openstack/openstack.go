// Package openstack implements the OpenStack backend: queries select
// hosts by enumerating server instances across one or more Keystone
// projects via the Compute API, matching on "key:value" filters.
//
// Grounded on the original project's openstack.py: Keystone
// password-auth session, per-project Nova server listing, default
// status:ACTIVE/vm_state:ACTIVE filters (overridable), the special
// "project" key, and "*" meaning all hosts in all visible projects.
package openstack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-cumin/cumin/internal/nodeset"
	"github.com/go-cumin/cumin/pkg/cuminerr"
)

// GrammarPrefix is the single-letter prefix this backend registers
// under in the global grammar ("O{...}").
const GrammarPrefix = "O"

// Name is the backend's configuration-facing name.
const Name = "openstack"

// Config controls how the backend authenticates against OpenStack.
type Config struct {
	AuthURL      string
	Username     string
	Password     string
	UserDomain   string
	ProjectDomain string
	Timeout      time.Duration
	DomainSuffix string
}

// Query evaluates openstack-backend query strings.
type Query struct {
	cfg    Config
	hc     *http.Client
	search map[string]string
	project string
	selectAll bool
}

// New constructs an OpenStack backend Query from the "openstack"
// configuration section.
func New(config map[string]any) (*Query, error) {
	cfg := Config{
		AuthURL:       "http://localhost:5000",
		Username:      "username",
		Password:      "password",
		UserDomain:    "default",
		ProjectDomain: "default",
		Timeout:       10 * time.Second,
	}

	section, _ := config["openstack"].(map[string]any)
	if section != nil {
		if v, ok := section["auth_url"].(string); ok {
			cfg.AuthURL = v
		}
		if v, ok := section["username"].(string); ok {
			cfg.Username = v
		}
		if v, ok := section["password"].(string); ok {
			cfg.Password = v
		}
		if v, ok := section["domain_suffix"].(string); ok {
			cfg.DomainSuffix = v
		}
	}

	return &Query{
		cfg:    cfg,
		hc:     &http.Client{Timeout: cfg.Timeout},
		search: map[string]string{"status": "ACTIVE", "vm_state": "ACTIVE"},
	}, nil
}

// Execute parses raw per the "*" | key:value (key:value)* grammar,
// then enumerates matching hosts.
func (q *Query) Execute(ctx context.Context, raw string) (*nodeset.Set, error) {
	if err := q.parse(raw); err != nil {
		return nil, cuminerr.NewInvalidQueryError(raw, err.Error(), err)
	}

	token, err := q.authenticate(ctx)
	if err != nil {
		return nil, cuminerr.NewBackendAuthError(Name, err)
	}

	var projects []string
	if q.project != "" {
		projects = []string{q.project}
	} else {
		projects, err = q.listProjects(ctx, token)
		if err != nil {
			return nil, cuminerr.NewBackendUnreachableError(Name, err)
		}
	}

	out := nodeset.New()
	for _, project := range projects {
		hosts, err := q.listServers(ctx, token, project)
		if err != nil {
			return nil, cuminerr.NewBackendUnreachableError(Name, err)
		}
		for _, h := range hosts {
			out.Add(h)
		}
	}
	return out, nil
}

func (q *Query) parse(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "*" {
		q.selectAll = true
		return nil
	}

	for _, tok := range strings.Fields(raw) {
		idx := strings.IndexByte(tok, ':')
		if idx < 0 {
			return fmt.Errorf("malformed filter %q, expected key:value", tok)
		}
		key := tok[:idx]
		value := tok[idx+1:]
		if len(value) >= 2 && (value[0] == '\'' || value[0] == '"') && value[len(value)-1] == value[0] {
			value = value[1 : len(value)-1]
		}
		if key == "project" {
			q.project = value
		} else {
			q.search[key] = value
		}
	}
	return nil
}

// fqdn builds the fully-qualified hostname for a server within a
// project, applying the configured domain suffix.
func (q *Query) fqdn(serverName, project string) string {
	domain := ""
	if q.cfg.DomainSuffix != "" {
		if strings.HasPrefix(q.cfg.DomainSuffix, ".") {
			domain = q.cfg.DomainSuffix
		} else {
			domain = "." + q.cfg.DomainSuffix
		}
	}
	return fmt.Sprintf("%s.%s%s", serverName, project, domain)
}

// ---- Keystone/Nova REST calls ----

func (q *Query) authenticate(ctx context.Context) (string, error) {
	payload := map[string]any{
		"auth": map[string]any{
			"identity": map[string]any{
				"methods": []string{"password"},
				"password": map[string]any{
					"user": map[string]any{
						"name":     q.cfg.Username,
						"password": q.cfg.Password,
						"domain":   map[string]any{"id": q.cfg.UserDomain},
					},
				},
			},
		},
	}
	body, _ := json.Marshal(payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, q.cfg.AuthURL+"/v3/auth/tokens", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := q.hc.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("keystone authentication failed: status %d", resp.StatusCode)
	}

	token := resp.Header.Get("X-Subject-Token")
	if token == "" {
		return "", fmt.Errorf("keystone response missing X-Subject-Token")
	}
	return token, nil
}

func (q *Query) listProjects(ctx context.Context, token string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, q.cfg.AuthURL+"/v3/auth/projects", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Auth-Token", token)

	resp, err := q.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed struct {
		Projects []struct {
			Name    string `json:"name"`
			Enabled bool   `json:"enabled"`
		} `json:"projects"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	var names []string
	for _, p := range parsed.Projects {
		if p.Enabled && p.Name != "admin" {
			names = append(names, p.Name)
		}
	}
	return names, nil
}

func (q *Query) listServers(ctx context.Context, token, project string) ([]string, error) {
	novaURL := q.cfg.AuthURL + "/v2.1/servers/detail"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, novaURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Auth-Token", token)

	query := req.URL.Query()
	for k, v := range q.search {
		if q.selectAll {
			continue
		}
		query.Set(k, v)
	}
	req.URL.RawQuery = query.Encode()

	resp, err := q.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("unauthorized listing servers for project %s: status %d", project, resp.StatusCode)
	}

	var parsed struct {
		Servers []struct {
			Name string `json:"name"`
		} `json:"servers"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]string, 0, len(parsed.Servers))
	for _, s := range parsed.Servers {
		out = append(out, q.fqdn(s.Name, project))
	}
	return out, nil
}
