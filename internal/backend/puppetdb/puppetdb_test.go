package puppetdb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseLeafFactEquality(t *testing.T) {
	t.Parallel()

	n, err := parse("F:osfamily=Debian")
	require.NoError(t, err)
	require.True(t, n.isLeaf())
	require.Equal(t, "F", n.category)
	require.Equal(t, "osfamily", n.key)
	require.Equal(t, "=", n.operator)
	require.Equal(t, "Debian", n.value)
}

func TestParseLeafWithParam(t *testing.T) {
	t.Parallel()

	n, err := parse(`R:File%ensure='present'`)
	require.NoError(t, err)
	require.Equal(t, "ensure", n.param)
	require.Equal(t, "present", n.value)
	require.True(t, n.quoted)
}

func TestParseAcceptsFieldWithoutParam(t *testing.T) {
	t.Parallel()

	_, err := parse("R:File@title=foo")
	require.NoError(t, err) // field alone is fine
}

func TestParseRejectsMixedBoolOperatorsWithoutParens(t *testing.T) {
	t.Parallel()

	_, err := parse("F:a=1 and F:b=2 or F:c=3")
	require.Error(t, err)
}

func TestParseAllowsMixedOperatorsWithParens(t *testing.T) {
	t.Parallel()

	n, err := parse("(F:a=1 and F:b=2) or F:c=3")
	require.NoError(t, err)
	require.False(t, n.isLeaf())
	require.Equal(t, "or", n.boolOp)
}

func TestEndpointRejectsMixedFactsAndResources(t *testing.T) {
	t.Parallel()

	n, err := parse("F:a=1 and R:File%ensure=present")
	require.NoError(t, err)
	_, err = n.endpoint()
	require.Error(t, err)
}

func TestEndpointSingleCategory(t *testing.T) {
	t.Parallel()

	n, err := parse("F:a=1 and F:b=2")
	require.NoError(t, err)
	ep, err := n.endpoint()
	require.NoError(t, err)
	require.Equal(t, "nodes", ep)
}

func TestClassTitleCapwordsAndRolePrefix(t *testing.T) {
	t.Parallel()

	n, err := parse("O:mariadb")
	require.NoError(t, err)
	ast, err := n.toAST()
	require.NoError(t, err)

	data, err := json.Marshal(ast)
	require.NoError(t, err)
	require.Contains(t, string(data), `"Role::Mariadb"`)
}

func TestToASTResourceWithParamAppendsClause(t *testing.T) {
	t.Parallel()

	n, err := parse(`R:File%ensure='present'`)
	require.NoError(t, err)
	ast, err := n.toAST()
	require.NoError(t, err)

	data, err := json.Marshal(ast)
	require.NoError(t, err)
	require.Contains(t, string(data), `"parameter"`)
	require.Contains(t, string(data), `"present"`)
}

func TestToASTResourceWithFieldAppendsClause(t *testing.T) {
	t.Parallel()

	n, err := parse("R:File@title=foo")
	require.NoError(t, err)
	ast, err := n.toAST()
	require.NoError(t, err)

	data, err := json.Marshal(ast)
	require.NoError(t, err)
	require.Contains(t, string(data), `"title"`)
	require.Contains(t, string(data), `"foo"`)
}

func TestNewDefaultsToVerifyingTLS(t *testing.T) {
	t.Parallel()

	q, err := New(nil)
	require.NoError(t, err)
	tr, ok := q.hc.Transport.(*http.Transport)
	require.True(t, ok)
	require.False(t, tr.TLSClientConfig.InsecureSkipVerify)
}

func TestNewHonorsSSLVerifyFalse(t *testing.T) {
	t.Parallel()

	q, err := New(map[string]any{"puppetdb": map[string]any{"ssl_verify": false}})
	require.NoError(t, err)
	tr, ok := q.hc.Transport.(*http.Transport)
	require.True(t, ok)
	require.True(t, tr.TLSClientConfig.InsecureSkipVerify)
}

func TestNewAppliesTimeout(t *testing.T) {
	t.Parallel()

	q, err := New(map[string]any{"puppetdb": map[string]any{"timeout": 5.0}})
	require.NoError(t, err)
	require.Equal(t, 5*time.Second, q.hc.Timeout)
}

func TestNewRejectsUnreadableClientCert(t *testing.T) {
	t.Parallel()

	_, err := New(map[string]any{"puppetdb": map[string]any{
		"ssl_client_cert": "/no/such/cert.pem",
		"ssl_client_key":  "/no/such/key.pem",
	}})
	require.Error(t, err)
}

func TestExecuteAgainstV4Endpoint(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/pdb/query/v4/nodes", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"certname":"host1.example.org"},{"certname":"host2.example.org"}]`))
	}))
	defer srv.Close()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, _ := strconv.Atoi(u.Port())

	q, err := New(map[string]any{
		"puppetdb": map[string]any{
			"url_scheme":  "http",
			"host":        u.Hostname(),
			"port":        port,
			"api_version": 4,
			"url_path":    "pdb/query/v4",
		},
	})
	require.NoError(t, err)

	hosts, err := q.Execute(context.Background(), "F:osfamily=Debian")
	require.NoError(t, err)
	require.Equal(t, 2, hosts.Len())
}
