package render

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentQueries(t *testing.T) {
	html := `<html><head>
		<meta property="og:image" content="https://cdn.test/main.jpg">
		</head><body>
		<h1>Smart Speaker</h1>
		<span class="backers-count">1,234</span>
		</body></html>`

	doc, err := NewDocument("https://x.test/p/1", []byte(html), 200, http.Header{})
	require.NoError(t, err)

	assert.Equal(t, "Smart Speaker", doc.Find("h1").Text())
	assert.Equal(t, "https://cdn.test/main.jpg", doc.Meta("og:image"))
	assert.Contains(t, doc.Text(), "1,234")
}

func TestBlockedDetection(t *testing.T) {
	doc, err := NewDocument("https://x.test", []byte("<html>Checking your browser before accessing</html>"), 200, http.Header{})
	require.NoError(t, err)
	blocked, kind := doc.Blocked()
	assert.True(t, blocked)
	assert.Equal(t, BlockCloudflare, kind)

	header := http.Header{}
	header.Set("cf-ray", "abc123")
	doc, err = NewDocument("https://x.test", []byte("<html></html>"), 403, header)
	require.NoError(t, err)
	blocked, kind = doc.Blocked()
	assert.True(t, blocked)
	assert.Equal(t, BlockCloudflare, kind)

	doc, err = NewDocument("https://x.test", []byte("<html><h1>ok</h1></html>"), 200, http.Header{})
	require.NoError(t, err)
	blocked, _ = doc.Blocked()
	assert.False(t, blocked)
}

func TestStaticSessionNavigate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><h1>Listing</h1></html>`))
	}))
	defer srv.Close()

	r := NewStatic(StaticConfig{RequestsPerSecond: 100})
	sess, err := r.NewSession(context.Background())
	require.NoError(t, err)
	defer sess.Close()

	doc, err := sess.Navigate(context.Background(), srv.URL, NavigateOptions{
		Wait: []WaitStrategy{WaitDOMContentLoaded, WaitNetworkIdle, WaitLoad},
	})
	require.NoError(t, err)
	assert.Equal(t, "Listing", doc.Find("h1").Text())
	assert.Equal(t, 200, doc.StatusCode)
}
