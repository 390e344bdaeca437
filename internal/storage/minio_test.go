package storage

import (
	"context"
	"testing"

	"github.com/arzan03/shopfront/internal/logger"
	"github.com/stretchr/testify/assert"
)

func TestImageStore_RemoveIgnoresForeignURLs(t *testing.T) {
	// client stays nil: none of these URLs may reach MinIO.
	store := &ImageStore{bucket: "images", baseURL: "http://localhost:9000/images", log: logger.NewNop()}

	for _, url := range []string{
		"",
		"https://cdn.example.com/images/products/a.png",
		"http://localhost:9000/other/products/a.png",
		"http://localhost:9000/images/",
	} {
		assert.NoError(t, store.Remove(context.Background(), url), url)
	}
}
