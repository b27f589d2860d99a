package render

import "strings"

// BlockType describes the kind of anti-automation block detected.
type BlockType string

const (
	BlockNone       BlockType = ""
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockDenied     BlockType = "access_denied"
)

// Blocked checks the document for signs of anti-bot protection. A blocked
// listing page is a transient site error; the adapter retries or skips.
func (d *Document) Blocked() (bool, BlockType) {
	if d.StatusCode == 403 || d.StatusCode == 503 {
		if d.Header.Get("cf-ray") != "" || d.Header.Get("server") == "cloudflare" {
			return true, BlockCloudflare
		}
	}

	lower := strings.ToLower(string(d.body))

	if strings.Contains(lower, "checking your browser") ||
		strings.Contains(lower, "cf-browser-verification") {
		return true, BlockCloudflare
	}
	if strings.Contains(lower, "recaptcha") ||
		strings.Contains(lower, "hcaptcha") ||
		strings.Contains(d.URL, "captcha") {
		return true, BlockCaptcha
	}
	if strings.Contains(lower, "access denied") {
		return true, BlockDenied
	}
	return false, BlockNone
}
