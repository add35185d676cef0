// Package puppetdb implements the PuppetDB backend: queries select
// hosts by fact, resource, or class/role/profile parameter matches
// against a PuppetDB instance's query API (v3 or v4).
//
// Grounded on the original project's puppetdb.py, including its
// category/endpoint mapping, the restriction against mixing facts and
// resources in one atomic subquery, the mutual exclusivity of the
// %param and @field suffixes, and automatic class-title
// capitalization.
package puppetdb

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-cumin/cumin/internal/nodeset"
	"github.com/go-cumin/cumin/pkg/cuminerr"
)

// GrammarPrefix is the single-letter prefix this backend registers
// under in the global grammar ("P{...}").
const GrammarPrefix = "P"

// Name is the backend's configuration-facing name.
const Name = "puppetdb"

// endpoints maps a query category to the PuppetDB endpoint it targets.
var endpoints = map[string]string{
	"C": "resources",
	"F": "nodes",
	"O": "resources",
	"P": "resources",
	"R": "resources",
}

// categoryPrefixes maps a category to the class-title prefix applied
// to its value before querying (Role:: / Profile::), empty for plain
// classes and resources.
var categoryPrefixes = map[string]string{
	"C": "",
	"O": "Role",
	"P": "Profile",
}

// Config controls how the backend reaches PuppetDB.
type Config struct {
	URLScheme     string
	Host          string
	Port          int
	APIVersion    int // 3 or 4
	UrlPath       string
	SSLVerify     bool // verify the PuppetDB server's TLS certificate; true by default
	SSLClientCert string
	SSLClientKey  string
	Timeout       time.Duration
}

// Query evaluates puppetdb-backend query strings.
type Query struct {
	cfg Config
	hc  *http.Client
}

// New constructs a PuppetDB backend Query from the "puppetdb"
// configuration section.
func New(config map[string]any) (*Query, error) {
	cfg := Config{URLScheme: "https", Port: 8081, APIVersion: 4, UrlPath: "pdb/query/v4", SSLVerify: true}

	section, _ := config["puppetdb"].(map[string]any)
	if section != nil {
		if v, ok := section["url_scheme"].(string); ok {
			cfg.URLScheme = v
		}
		if v, ok := section["host"].(string); ok {
			cfg.Host = v
		}
		if v, ok := section["port"].(int); ok {
			cfg.Port = v
		}
		if v, ok := section["api_version"].(int); ok {
			cfg.APIVersion = v
		}
		if v, ok := section["url_path"].(string); ok {
			cfg.UrlPath = v
		}
		if v, ok := section["ssl_verify"].(bool); ok {
			cfg.SSLVerify = v
		}
		if v, ok := section["ssl_client_cert"].(string); ok {
			cfg.SSLClientCert = v
		}
		if v, ok := section["ssl_client_key"].(string); ok {
			cfg.SSLClientKey = v
		}
		if v, ok := section["timeout"].(float64); ok {
			cfg.Timeout = time.Duration(v * float64(time.Second))
		}
	}

	if cfg.APIVersion != 3 && cfg.APIVersion != 4 {
		return nil, cuminerr.NewConfigError(fmt.Sprintf("unsupported puppetdb api_version %d", cfg.APIVersion), nil)
	}

	tlsConfig := &tls.Config{InsecureSkipVerify: !cfg.SSLVerify}
	if cfg.SSLClientCert != "" && cfg.SSLClientKey != "" {
		cert, err := tls.LoadX509KeyPair(cfg.SSLClientCert, cfg.SSLClientKey)
		if err != nil {
			return nil, cuminerr.NewConfigError(fmt.Sprintf("loading puppetdb client cert/key: %v", err), err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	hc := &http.Client{Transport: &http.Transport{TLSClientConfig: tlsConfig}}
	if cfg.Timeout > 0 {
		hc.Timeout = cfg.Timeout
	}

	return &Query{cfg: cfg, hc: hc}, nil
}

// Execute parses raw as a PuppetDB sub-grammar expression, builds the
// equivalent PuppetDB AST query, issues it, and returns the matching
// hosts.
func (q *Query) Execute(ctx context.Context, raw string) (*nodeset.Set, error) {
	node, err := parse(raw)
	if err != nil {
		return nil, cuminerr.NewInvalidQueryError(raw, err.Error(), err)
	}

	endpoint, err := node.endpoint()
	if err != nil {
		return nil, cuminerr.NewInvalidQueryError(raw, err.Error(), err)
	}

	ast, err := node.toAST()
	if err != nil {
		return nil, cuminerr.NewInvalidQueryError(raw, err.Error(), err)
	}

	return q.query(ctx, endpoint, ast)
}

func (q *Query) query(ctx context.Context, endpoint string, ast any) (*nodeset.Set, error) {
	body, err := json.Marshal(ast)
	if err != nil {
		return nil, fmt.Errorf("puppetdb: marshal query: %w", err)
	}

	base := fmt.Sprintf("%s://%s:%d/%s/%s", q.cfg.URLScheme, q.cfg.Host, q.cfg.Port, q.cfg.UrlPath, endpoint)

	var req *http.Request
	if q.cfg.APIVersion == 4 {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, base, bytes.NewReader(body))
		if err == nil {
			req.Header.Set("Content-Type", "application/json")
		}
	} else {
		u, parseErr := url.Parse(base)
		if parseErr != nil {
			return nil, parseErr
		}
		q := u.Query()
		q.Set("query", string(body))
		u.RawQuery = q.Encode()
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	}
	if err != nil {
		return nil, fmt.Errorf("puppetdb: build request: %w", err)
	}

	resp, err := q.hc.Do(req)
	if err != nil {
		return nil, cuminerr.NewBackendUnreachableError(Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, cuminerr.NewBackendAuthError(Name, fmt.Errorf("status %d", resp.StatusCode))
	}
	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return nil, cuminerr.NewBackendUnreachableError(Name, fmt.Errorf("status %d: %s", resp.StatusCode, data))
	}

	var rows []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("puppetdb: decode response: %w", err)
	}

	hostsKey := "certname"
	if endpoint == "nodes" && q.cfg.APIVersion == 3 {
		hostsKey = "name"
	}

	out := nodeset.New()
	for _, row := range rows {
		if v, ok := row[hostsKey].(string); ok {
			out.Add(v)
		}
	}
	return out, nil
}

// ---- grammar ----

// node is the parsed PuppetDB sub-grammar AST.
type node struct {
	// leaf fields
	negate   bool
	category string // C, F, O, P, R
	key      string
	param    string // %param, mutually exclusive with field
	field    string // @field
	operator string
	value    string
	quoted   bool

	// group fields (non-empty children means this is a group)
	children []*node
	boolOp   string // "and" or "or", applies uniformly within this group
}

func (n *node) isLeaf() bool { return len(n.children) == 0 }

func (n *node) endpoint() (string, error) {
	seen := map[string]bool{}
	var walk func(*node) error
	walk = func(cur *node) error {
		if cur.isLeaf() {
			ep, ok := endpoints[cur.category]
			if !ok {
				return fmt.Errorf("unknown category %q", cur.category)
			}
			seen[ep] = true
			return nil
		}
		for _, c := range cur.children {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(n); err != nil {
		return "", err
	}
	if len(seen) > 1 {
		return "", fmt.Errorf("mixed endpoints are not supported in a single PuppetDB subquery")
	}
	for ep := range seen {
		return ep, nil
	}
	return "", fmt.Errorf("empty query")
}

// toAST renders the PuppetDB query AST (the nested ["and"/"or"/"not",
// ["=", "field", value], ...] shape PuppetDB's query API expects).
func (n *node) toAST() (any, error) {
	if !n.isLeaf() {
		parts := make([]any, 0, len(n.children)+1)
		parts = append(parts, n.boolOp)
		for _, c := range n.children {
			child, err := c.toAST()
			if err != nil {
				return nil, err
			}
			parts = append(parts, child)
		}
		return parts, nil
	}

	if n.param != "" && n.field != "" {
		return nil, fmt.Errorf("%%param and @field are mutually exclusive")
	}

	var clause []any
	switch n.category {
	case "F":
		clause = []any{n.operator, []any{"fact", n.key}, typedValue(n.value, n.quoted)}
	case "C", "O", "P":
		title := n.key
		if prefix := categoryPrefixes[n.category]; prefix != "" {
			title = prefix + "::" + title
		}
		if n.operator != "~" {
			title = capwords(title)
		}
		base := []any{"=", "type", "Class"}
		titleClause := []any{"=", "title", title}
		clause = []any{"and", base, titleClause}
		if n.param != "" {
			clause = append(clause, []any{n.operator, []any{"parameter", n.param}, typedValue(n.value, n.quoted)})
		} else if n.field != "" {
			clause = append(clause, []any{n.operator, n.field, typedValue(n.value, n.quoted)})
		}
	case "R":
		base := []any{"=", "type", capwords(n.key)}
		clause = []any{"and", base}
		if n.param != "" {
			clause = append(clause, []any{n.operator, []any{"parameter", n.param}, typedValue(n.value, n.quoted)})
		} else if n.field != "" {
			clause = append(clause, []any{n.operator, n.field, typedValue(n.value, n.quoted)})
		}
	default:
		return nil, fmt.Errorf("unknown category %q", n.category)
	}

	if n.negate {
		return []any{"not", clause}, nil
	}
	return clause, nil
}

func typedValue(v string, quoted bool) any {
	if quoted {
		return v
	}
	if i, err := strconv.Atoi(v); err == nil {
		return i
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return v
}

func capwords(s string) string {
	parts := strings.Split(s, "::")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + p[1:]
	}
	return strings.Join(parts, "::")
}
