package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/menta2k/image-describer/internal/config"
	"github.com/menta2k/image-describer/pkg/chat"
	"github.com/menta2k/image-describer/pkg/describer"
)

// stubCompleter answers every completion with a fixed text, or fails when
// failEverything is set.
type stubCompleter struct {
	text           string
	failEverything bool
}

func (s *stubCompleter) Complete(ctx context.Context, req *chat.CompletionRequest) (*chat.CompletionResponse, error) {
	if s.failEverything {
		return nil, fmt.Errorf("backend unavailable")
	}
	return &chat.CompletionResponse{
		Choices: []chat.Choice{
			{Message: chat.Message{Role: "assistant", Content: s.text}},
		},
	}, nil
}

func newTestServer(stub *stubCompleter) *Server {
	gin.SetMode(gin.TestMode)
	cfg := &config.Config{
		Endpoint:      "https://example.openai.azure.com",
		MaxUploadSize: 1 << 20,
	}
	d := describer.New(stub, describer.Options{Model: "gpt-4o", MaxAttempts: 1})
	return New(d, cfg, map[string]string{"service": "Azure OpenAI"})
}

func multipartBody(t *testing.T, field string, files map[string][]byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for name, data := range files {
		part, err := writer.CreateFormFile(field, name)
		assert.NoError(t, err)
		_, err = part.Write(data)
		assert.NoError(t, err)
	}
	for key, value := range fields {
		assert.NoError(t, writer.WriteField(key, value))
	}
	assert.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(&stubCompleter{text: "x"})
	router := srv.Router()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}

func TestInfoEndpoint(t *testing.T) {
	srv := newTestServer(&stubCompleter{text: "x"})
	router := srv.Router()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/info", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var info map[string]string
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	assert.Equal(t, "Azure OpenAI", info["service"])
}

func TestDescribeEndpoint(t *testing.T) {
	srv := newTestServer(&stubCompleter{text: "A scenic mountain lake."})
	router := srv.Router()

	body, contentType := multipartBody(t, "image",
		map[string][]byte{"lake.jpg": []byte("fake image bytes")},
		map[string]string{"prompt": "What is this?"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/describe", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp DescribeResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "lake.jpg", resp.Filename)
	assert.Equal(t, "A scenic mountain lake.", resp.Description)
}

func TestDescribeEndpointMissingFile(t *testing.T) {
	srv := newTestServer(&stubCompleter{text: "x"})
	router := srv.Router()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/describe", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDescribeEndpointBackendFailure(t *testing.T) {
	srv := newTestServer(&stubCompleter{failEverything: true})
	router := srv.Router()

	body, contentType := multipartBody(t, "image",
		map[string][]byte{"lake.jpg": []byte("fake image bytes")}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/describe", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "backend unavailable")
}

func TestDescribeBatchEndpoint(t *testing.T) {
	srv := newTestServer(&stubCompleter{text: "described"})
	router := srv.Router()

	body, contentType := multipartBody(t, "images", map[string][]byte{
		"one.jpg": []byte("image-one"),
		"two.jpg": []byte("image-two"),
	}, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/describe/batch", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Results []describer.Result `json:"results"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Results, 2)
	for _, r := range resp.Results {
		assert.True(t, r.Success)
		assert.Equal(t, "described", r.Text)
	}
}

func TestDescribeBatchEndpointMissingFiles(t *testing.T) {
	srv := newTestServer(&stubCompleter{text: "x"})
	router := srv.Router()

	body, contentType := multipartBody(t, "images", nil, map[string]string{"prompt": "p"})

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/describe/batch", body)
	req.Header.Set("Content-Type", contentType)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
