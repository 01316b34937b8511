package antidetect

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectHTTPStatusCodes(t *testing.T) {
	d := Detect(429, "")
	assert.True(t, d.Detected)
	assert.Equal(t, CategoryRateLimit, d.Category)

	d = Detect(503, "")
	assert.True(t, d.Detected)
}

func TestDetectCloudflareCodeBeatsGenericPattern(t *testing.T) {
	body := "Sorry, you have been rate limited. Error code: 1015"
	d := Detect(200, body)
	assert.Equal(t, "CF_1015", d.ErrorCode)
}

func TestDetectGenericCaptcha(t *testing.T) {
	d := Detect(200, "Please complete the reCAPTCHA to continue")
	assert.True(t, d.Detected)
	assert.Equal(t, CategoryCaptcha, d.Category)
}

func TestDetectCloudflare403Fallback(t *testing.T) {
	d := Detect(403, "<html>cloudflare ray id ...</html>")
	assert.True(t, d.Detected)
	assert.Equal(t, "CF_403", d.ErrorCode)
}

func TestDetectNoMatchIsUndetected(t *testing.T) {
	d := Detect(200, "<html><body>Welcome to the store</body></html>")
	assert.False(t, d.Detected)
}

func TestDetectTruncatesOversizedBody(t *testing.T) {
	huge := make([]byte, maxBodyLenForRegex+1000)
	for i := range huge {
		huge[i] = 'x'
	}
	d := Detect(200, string(huge))
	assert.False(t, d.Detected)
}
