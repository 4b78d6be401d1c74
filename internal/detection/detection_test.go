package detection

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pratik-mahalle/watchpost/internal/config"
	"github.com/pratik-mahalle/watchpost/internal/domain/camera"
	"github.com/pratik-mahalle/watchpost/internal/testutil"
)

func testFrame() camera.Frame {
	return camera.Frame{
		CameraID:   3,
		Seq:        17,
		CapturedAt: time.Now(),
		Image:      testutil.CheckerImage(32, 32, 4),
	}
}

func TestHTTPEngine_Analyze(t *testing.T) {
	var gotAuth, gotType, gotCamera string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotCamera = r.Header.Get("X-Camera-ID")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"emergency_detected":true,"confidence_scores":{"fire":0.92},"description":"Fire near the door"}`))
	}))
	defer srv.Close()

	engine := NewHTTPEngine(HTTPConfig{EndpointURL: srv.URL, APIKey: "k1", Threshold: 0.7}, testutil.NewTestLogger())
	res, err := engine.Analyze(context.Background(), testFrame())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if gotAuth != "Bearer k1" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotType != "image/jpeg" || len(gotBody) < 2 || gotBody[0] != 0xFF || gotBody[1] != 0xD8 {
		t.Errorf("request body is not a JPEG (type %q, %d bytes)", gotType, len(gotBody))
	}
	if gotCamera != "3" {
		t.Errorf("X-Camera-ID = %q", gotCamera)
	}
	if !res.EmergencyDetected || res.ConfidenceScores["fire"] != 0.92 || res.Description != "Fire near the door" {
		t.Errorf("Analyze() = %+v", res)
	}
}

func TestHTTPEngine_Errors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
		want    bool
	}{
		{"server error", http.StatusInternalServerError, `{}`, true, false},
		{"below threshold", http.StatusOK, `{"emergency_detected":true,"confidence_scores":{"fire":0.2}}`, false, false},
		{"no scores trusted", http.StatusOK, `{"emergency_detected":true}`, false, true},
		{"percent scale above threshold", http.StatusOK, `{"emergency_detected":true,"confidence_scores":{"fire":92}}`, false, true},
		{"percent scale below threshold", http.StatusOK, `{"emergency_detected":true,"confidence_scores":{"fire":20}}`, false, false},
		{"quiet frame", http.StatusOK, `{"emergency_detected":false,"confidence_scores":{"fire":0.9}}`, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			engine := NewHTTPEngine(HTTPConfig{EndpointURL: srv.URL, Threshold: 0.7}, testutil.NewTestLogger())
			res, err := engine.Analyze(context.Background(), testFrame())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Analyze() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && res.EmergencyDetected != tt.want {
				t.Errorf("EmergencyDetected = %v, want %v", res.EmergencyDetected, tt.want)
			}
		})
	}
}

func TestOpenAIEngine_Analyze(t *testing.T) {
	var req struct {
		Model          string `json:"model"`
		ResponseFormat struct {
			Type string `json:"type"`
		} `json:"response_format"`
		Messages []struct {
			Content []struct {
				Type     string `json:"type"`
				ImageURL struct {
					URL string `json:"url"`
				} `json:"image_url"`
			} `json:"content"`
		} `json:"messages"`
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		reply := "```json\n{\"emergency_detected\": true, \"confidence_scores\": {\"fall\": 0.81}, \"description\": \"Person on the floor\"}\n```"
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "gpt-4o-mini",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": reply},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		})
	}))
	defer srv.Close()

	engine := NewOpenAIEngine(OpenAIConfig{APIKey: "sk-test", BaseURL: srv.URL + "/v1", Threshold: 0.7}, testutil.NewTestLogger())
	res, err := engine.Analyze(context.Background(), testFrame())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if req.Model != "gpt-4o-mini" || req.ResponseFormat.Type != "json_object" {
		t.Errorf("request model/format = %q/%q", req.Model, req.ResponseFormat.Type)
	}
	foundImage := false
	for _, m := range req.Messages {
		for _, part := range m.Content {
			if part.Type == "image_url" && strings.HasPrefix(part.ImageURL.URL, "data:image/jpeg;base64,") {
				foundImage = true
			}
		}
	}
	if !foundImage {
		t.Error("request carried no inline JPEG")
	}

	if !res.EmergencyDetected || res.ConfidenceScores["fall"] != 0.81 || res.Description != "Person on the floor" {
		t.Errorf("Analyze() = %+v", res)
	}
	if res.Analysis()["model"] != "gpt-4o-mini" {
		t.Errorf("Analysis() = %v", res.Analysis())
	}
}

func TestGeminiEngine_Analyze(t *testing.T) {
	var gotKey, gotPath string
	var req geminiRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("X-Goog-Api-Key")
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{"parts": []map[string]any{{
					"text": `{"emergency_detected": true, "confidence_scores": {"violence": 0.75}, "description": "Fight in the corridor"}`,
				}}},
				"finishReason": "STOP",
			}},
		})
	}))
	defer srv.Close()

	engine := NewGeminiEngine(GeminiConfig{APIKey: "g-key", BaseURL: srv.URL, Threshold: 0.7}, testutil.NewTestLogger())
	res, err := engine.Analyze(context.Background(), testFrame())
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	if gotKey != "g-key" || gotPath != "/gemini-2.0-flash:generateContent" {
		t.Errorf("request key %q path %q", gotKey, gotPath)
	}
	if len(req.Contents) != 1 || len(req.Contents[0].Parts) != 2 || req.Contents[0].Parts[1].InlineData == nil {
		t.Fatalf("request carried no inline image: %+v", req)
	}
	if req.Contents[0].Parts[1].InlineData.MimeType != "image/jpeg" {
		t.Errorf("mime type = %q", req.Contents[0].Parts[1].InlineData.MimeType)
	}
	if !res.EmergencyDetected || res.ConfidenceScores["violence"] != 0.75 {
		t.Errorf("Analyze() = %+v", res)
	}
}

func TestParseReply_Invalid(t *testing.T) {
	if _, err := parseReply("I cannot tell"); err == nil {
		t.Error("parseReply() accepted prose")
	}
}

func TestFromConfig(t *testing.T) {
	log := testutil.NewTestLogger()
	tests := []struct {
		engine  string
		wantNil bool
		wantErr bool
	}{
		{"none", true, false},
		{"noop", false, false},
		{"http", false, false},
		{"openai", false, false},
		{"gemini", false, false},
		{"yolo", true, true},
	}
	for _, tt := range tests {
		t.Run(tt.engine, func(t *testing.T) {
			e, err := FromConfig(config.DetectionConfig{Engine: tt.engine, EndpointURL: "http://localhost", OpenAIKey: "k", GeminiKey: "g"}, log)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FromConfig() error = %v", err)
			}
			if (e == nil) != tt.wantNil {
				t.Errorf("FromConfig() engine = %T", e)
			}
		})
	}

	res, _ := NoopEngine{}.Analyze(context.Background(), testFrame())
	if res.EmergencyDetected {
		t.Error("NoopEngine reported an emergency")
	}
}
