package handlers

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"advisorbot/config"
	"advisorbot/models"
	"advisorbot/utils"

	speech "cloud.google.com/go/speech/apiv1"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"google.golang.org/api/option"
	texttospeech "google.golang.org/api/texttospeech/v1"
	speechpb "google.golang.org/genproto/googleapis/cloud/speech/v1"
)

const (
	MaxDurationSeconds = 60              // 1 minute maximum
	MaxFileSize        = 5 * 1024 * 1024 // 5MB (conservative buffer)
	AllowedExtension   = ".wav"
)

type waveHeader struct {
	RiffTag       [4]byte
	FileSize      uint32
	WaveTag       [4]byte
	FmtTag        [4]byte
	FmtSize       uint32
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	ByteRate      uint32
	BlockAlign    uint16
	BitsPerSample uint16
	DataTag       [4]byte
	DataSize      uint32
}

func parseWaveHeader(data []byte) (*waveHeader, error) {
	if len(data) < 44 {
		return nil, errors.New("invalid WAV header length")
	}
	var header waveHeader
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &header); err != nil {
		return nil, err
	}
	return &header, nil
}

func convertAudio(inputPath, outputPath string) error {
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return fmt.Errorf("ffmpeg not found in system PATH: %v", err)
	}

	cmd := exec.Command("ffmpeg",
		"-y",
		"-i", inputPath,
		"-acodec", "pcm_s16le",
		"-ac", "1",
		"-ar", "16000",
		outputPath,
	)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg conversion failed: %s", stderr.String())
	}
	return nil
}

// transcribe normalizes the uploaded audio with ffmpeg and runs it through
// Google Speech-to-Text.
func transcribe(ctx context.Context, audioData []byte, language string) (string, error) {
	client, err := speech.NewClient(ctx, option.WithCredentialsFile(config.AppConfig.GoogleServiceAccountFile))
	if err != nil {
		return "", fmt.Errorf("failed to initialize speech client: %w", err)
	}
	defer client.Close()

	req := &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:          speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:   16000,
			LanguageCode:      language,
			AudioChannelCount: 1, // Mono
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{
				Content: audioData,
			},
		},
	}

	resp, err := client.Recognize(ctx, req)
	if err != nil {
		return "", fmt.Errorf("speech recognition failed: %w", err)
	}

	var transcript strings.Builder
	for _, result := range resp.Results {
		for _, alt := range result.Alternatives {
			transcript.WriteString(alt.Transcript + " ")
		}
	}
	return strings.TrimSpace(transcript.String()), nil
}

// synthesize turns the agent's reply into MP3 audio, base64-encoded. Any
// failure degrades the voice turn to text-only.
func synthesize(ctx context.Context, text, language string) (string, error) {
	svc, err := texttospeech.NewService(ctx, option.WithCredentialsFile(config.AppConfig.GoogleServiceAccountFile))
	if err != nil {
		return "", fmt.Errorf("failed to initialize tts client: %w", err)
	}

	resp, err := svc.Text.Synthesize(&texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: text},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: language,
			SsmlGender:   "FEMALE",
		},
		AudioConfig: &texttospeech.AudioConfig{AudioEncoding: "MP3"},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("speech synthesis failed: %w", err)
	}
	return resp.AudioContent, nil
}

// VoiceHandler runs a full voice turn: speech-to-text, one chat turn, then
// best-effort text-to-speech on the reply.
func VoiceHandler(reg *SessionRegistry) gin.HandlerFunc {
	return func(c *gin.Context) {
		if config.AppConfig.GoogleServiceAccountFile == "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "error",
				"message": "Voice is not configured on this server",
			})
			return
		}

		// 1. Get language parameter (default to en-US)
		language := c.DefaultPostForm("language", "en-US")

		// 2. Get audio file from multipart form
		file, header, err := c.Request.FormFile("audio")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"status":  "error",
				"message": "audio file is required",
			})
			return
		}
		defer file.Close()

		// 3. Validate file extension
		if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != AllowedExtension {
			c.JSON(http.StatusBadRequest, gin.H{
				"status":  "error",
				"message": fmt.Sprintf("invalid file type: expected %s, got %s", AllowedExtension, ext),
			})
			return
		}

		// 4. Save upload to a temp file for ffmpeg
		tempInput, err := os.CreateTemp("", "audio-*.wav")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": genericApology})
			return
		}
		defer os.Remove(tempInput.Name())
		defer tempInput.Close()

		if _, err := io.Copy(tempInput, io.LimitReader(file, MaxFileSize)); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": genericApology})
			return
		}

		tempOutput, err := os.CreateTemp("", "converted-*.wav")
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": genericApology})
			return
		}
		defer os.Remove(tempOutput.Name())
		defer tempOutput.Close()

		// 5. Normalize to 16kHz mono LINEAR16
		if err := convertAudio(tempInput.Name(), tempOutput.Name()); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"status":  "error",
				"message": "audio conversion failed",
			})
			return
		}

		audioData, err := os.ReadFile(tempOutput.Name())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": genericApology})
			return
		}

		// 6. Enforce the duration cap using the converted WAV header
		if wav, err := parseWaveHeader(audioData); err == nil && wav.ByteRate > 0 {
			if wav.DataSize/wav.ByteRate > MaxDurationSeconds {
				c.JSON(http.StatusBadRequest, gin.H{
					"status":  "error",
					"message": fmt.Sprintf("audio exceeds maximum duration of %d seconds", MaxDurationSeconds),
				})
				return
			}
		}

		userText, err := transcribe(c.Request.Context(), audioData, language)
		if err != nil {
			utils.GetLogger().Error("Transcription failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": genericApology})
			return
		}
		if userText == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"status":  "error",
				"message": "Could not understand the audio. Please try again.",
			})
			return
		}

		sessionID := ensureSession(c, reg.ttl)
		agent, err := reg.Agent(c.Request.Context(), sessionID)
		if err != nil {
			utils.GetLogger().Error("Failed to create session agent", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": genericApology})
			return
		}

		ctx, reqLog := utils.NewRequestLog(c.Request.Context())
		reply, err := agent.Chat(ctx, userText)
		if err != nil {
			utils.GetLogger().Error("Voice chat turn failed", zap.String("session", sessionID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "message": genericApology})
			return
		}

		audioBase64, err := synthesize(c.Request.Context(), reply.Text, language)
		if err != nil {
			utils.GetLogger().Warn("Text-to-speech failed, returning text only", zap.Error(err))
			audioBase64 = ""
		}

		c.JSON(http.StatusOK, models.VoiceResponse{
			Status:      "success",
			UserText:    userText,
			AgentText:   reply.Text,
			UIComponent: reply.UIHint,
			AudioBase64: audioBase64,
			Logs:        reqLog.Entries(),
		})
	}
}
