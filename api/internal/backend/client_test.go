package backend_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/backend"
	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/backend/backendtest"
	"github.com/MohamedFakhry2007/imaging-report-generator/api/internal/upload"
)

var pngFile = upload.File{Name: "scan.png", MIME: "image/png", Data: []byte("\x89PNG\r\n\x1a\nfake")}

func TestListStyles(t *testing.T) {
	srv := backendtest.New(backend.VariantStyledStory)
	defer srv.Close()
	srv.SetStyles(backendtest.Reply{Body: []backend.Style{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}}})

	c := backend.New(srv.URL+"/", backend.VariantStyledStory, time.Second)
	got, err := c.ListStyles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []backend.Style{{ID: "a", Name: "A"}, {ID: "b", Name: "B"}}, got)
}

func TestListStyles_Non2xx(t *testing.T) {
	srv := backendtest.New(backend.VariantStyledStory)
	defer srv.Close()
	srv.SetStyles(backendtest.Reply{Status: http.StatusServiceUnavailable, Body: map[string]string{"detail": "down"}})

	_, err := backend.New(srv.URL, backend.VariantStyledStory, time.Second).ListStyles(context.Background())
	var he *backend.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, http.StatusServiceUnavailable, he.StatusCode)
	assert.Equal(t, "down", he.Detail)
}

func TestGenerate_SendsMultipart(t *testing.T) {
	tests := []struct {
		variant   backend.Variant
		path      string
		wantStyle string
	}{
		{backend.VariantReport, "/api/generate-report", ""},
		{backend.VariantStory, "/api/generate-story", ""},
		{backend.VariantStyledStory, "/api/generate-story", "classical_poetic"},
	}
	for _, tc := range tests {
		t.Run(string(tc.variant), func(t *testing.T) {
			srv := backendtest.New(tc.variant)
			defer srv.Close()
			srv.SetGenerate(func(backendtest.Upload) backendtest.Reply {
				return backendtest.Reply{Body: map[string]string{tc.variant.ResultField(): "Findings: normal."}}
			})

			c := backend.New(srv.URL, tc.variant, time.Second)
			text, err := c.Generate(context.Background(), backend.GenerateRequest{File: pngFile, StyleID: "classical_poetic"})
			require.NoError(t, err)
			assert.Equal(t, "Findings: normal.", text)

			ups := srv.Uploads()
			require.Len(t, ups, 1)
			assert.Equal(t, tc.path, ups[0].Path)
			assert.Equal(t, "scan.png", ups[0].Filename)
			assert.Equal(t, "image/png", ups[0].MIME)
			assert.Equal(t, pngFile.Data, ups[0].Data)
			assert.Equal(t, tc.wantStyle, ups[0].StyleID)
		})
	}
}

func TestGenerate_ErrorBodies(t *testing.T) {
	tests := []struct {
		name       string
		reply      backendtest.Reply
		wantStatus int
		wantDetail string
	}{
		{"string detail", backendtest.Reply{Status: 422, Body: map[string]string{"detail": "Invalid file"}}, 422, "Invalid file"},
		{"validation list", backendtest.Reply{Status: 422, Raw: `{"detail":[{"msg":"field required"},{"msg":"bad type"}]}`}, 422, "field required; bad type"},
		{"empty body", backendtest.Reply{Status: 500}, 500, ""},
		{"not json", backendtest.Reply{Status: 500, Raw: "<html>oops</html>"}, 500, ""},
		{"no detail", backendtest.Reply{Status: 502, Body: map[string]string{"error": "x"}}, 502, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := backendtest.New(backend.VariantReport)
			defer srv.Close()
			srv.SetGenerate(func(backendtest.Upload) backendtest.Reply { return tc.reply })

			_, err := backend.New(srv.URL, backend.VariantReport, time.Second).
				Generate(context.Background(), backend.GenerateRequest{File: pngFile})
			var he *backend.HTTPError
			require.ErrorAs(t, err, &he)
			assert.Equal(t, tc.wantStatus, he.StatusCode)
			assert.Equal(t, tc.wantDetail, he.Detail)
		})
	}
}

func TestGenerate_MalformedSuccess(t *testing.T) {
	for name, reply := range map[string]backendtest.Reply{
		"wrong field": {Body: map[string]string{"story": "x"}},
		"not string":  {Raw: `{"report": 42}`},
		"not json":    {Raw: "ok"},
	} {
		t.Run(name, func(t *testing.T) {
			srv := backendtest.New(backend.VariantReport)
			defer srv.Close()
			srv.SetGenerate(func(backendtest.Upload) backendtest.Reply { return reply })

			_, err := backend.New(srv.URL, backend.VariantReport, time.Second).
				Generate(context.Background(), backend.GenerateRequest{File: pngFile})
			assert.ErrorIs(t, err, backend.ErrMalformedResponse)
		})
	}
}

func TestGenerate_Transport(t *testing.T) {
	srv := backendtest.New(backend.VariantReport)
	url := srv.URL
	srv.Close()

	_, err := backend.New(url, backend.VariantReport, time.Second).
		Generate(context.Background(), backend.GenerateRequest{File: pngFile})
	require.Error(t, err)
	var he *backend.HTTPError
	assert.False(t, errors.As(err, &he))
}

func TestHealth(t *testing.T) {
	srv := backendtest.New(backend.VariantReport)
	defer srv.Close()
	require.NoError(t, backend.New(srv.URL, backend.VariantReport, time.Second).Health(context.Background()))
}

func TestParseVariant(t *testing.T) {
	v, err := backend.ParseVariant("")
	require.NoError(t, err)
	assert.Equal(t, backend.VariantReport, v)

	v, err = backend.ParseVariant(" Styled-Story ")
	require.NoError(t, err)
	assert.True(t, v.UsesStyles())

	_, err = backend.ParseVariant("poem")
	assert.Error(t, err)
}
