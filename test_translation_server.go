package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

type TranslationResponse struct {
	Status string `json:"status"`
	Text   string `json:"text,omitempty"`
	Reason string `json:"reason,omitempty"`
}

var (
	noMatchEvery = flag.Int("no-match-every", 3, "Every Nth request returns no_match (0 disables)")
	cancelReason = flag.String("cancel", "", "Return canceled with this reason for every request")
	delay        = flag.Duration("delay", 200*time.Millisecond, "Simulated processing time per request")
)

var requestCount int

func translateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Parse multipart form
	err := r.ParseMultipartForm(10 << 20) // 10 MB
	if err != nil {
		http.Error(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	requestID := r.FormValue("request_id")
	sequence := r.FormValue("sequence")
	sampleRate := r.FormValue("sample_rate")
	channels := r.FormValue("channels")
	inputLanguage := r.FormValue("input_language")
	outputLanguage := r.FormValue("output_language")

	// Get audio file
	file, header, err := r.FormFile("audio")
	if err != nil {
		http.Error(w, "Error getting audio file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	audioData, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Error reading audio file", http.StatusInternalServerError)
		return
	}

	requestCount++

	log.Printf("🎤 TRANSLATION REQUEST RECEIVED:")
	log.Printf("    Request ID: %s", requestID)
	log.Printf("    Sequence: %s", sequence)
	log.Printf("    Format: %s Hz, %s channel(s)", sampleRate, channels)
	log.Printf("    Languages: %s -> %s", inputLanguage, outputLanguage)
	log.Printf("    Filename: %s", header.Filename)
	log.Printf("    Audio Size: %d bytes", len(audioData))

	// Simulate processing time
	time.Sleep(*delay)

	var response TranslationResponse
	switch {
	case *cancelReason != "":
		response = TranslationResponse{Status: "canceled", Reason: *cancelReason}
	case *noMatchEvery > 0 && requestCount%*noMatchEvery == 0:
		response = TranslationResponse{Status: "no_match"}
	default:
		response = TranslationResponse{
			Status: "translated",
			Text:   fmt.Sprintf("Esta es una traducción de prueba del fragmento %s", sequence),
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)

	log.Printf("✅ TRANSLATION RESPONSE SENT: status=%s text='%s'", response.Status, response.Text)
	log.Println("---")
}

func main() {
	flag.Parse()

	http.HandleFunc("/translate", translateHandler)

	port := ":8080"
	log.Printf("🚀 Test Translation Server starting on port %s", port)
	log.Printf("📡 Endpoint: http://localhost%s/translate", port)
	log.Println("💡 Update your config to use: http://localhost:8080/translate")

	if err := http.ListenAndServe(port, nil); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}
