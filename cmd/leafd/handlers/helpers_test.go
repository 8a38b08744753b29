package handlers_test

import (
	"io"
	"testing"

	httptestutil "github.com/verdantlab/leafwise/internal/testutils/http"
)

func mustMultipart(t *testing.T, fields ...httptestutil.MultipartField) (io.Reader, string) {
	t.Helper()
	body, ctype, err := httptestutil.Multipart(fields...)
	if err != nil {
		t.Fatal(err)
	}
	return body, ctype
}
