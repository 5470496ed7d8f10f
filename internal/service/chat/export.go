package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/briefing-buddy/backend/internal/model/chat"
)

const exportTitle = "Briefing Buddy Chat Export"

// ExportMetadata 导出文件头信息
type ExportMetadata struct {
	Generated time.Time `json:"generated"`
	Count     int       `json:"count"`
}

// Export is the JSON export document.
type Export struct {
	Metadata ExportMetadata `json:"metadata"`
	Messages []chat.Message `json:"messages"`
}

// ExportText renders the transcript as a plain text document.
func (s *Service) ExportText(ctx context.Context, userID string) (string, error) {
	messages, err := s.LoadTranscript(ctx, userID)
	if err != nil {
		return "", err
	}
	return FormatText(messages, time.Now().UTC()), nil
}

// ExportJSON renders the transcript with export metadata.
func (s *Service) ExportJSON(ctx context.Context, userID string) ([]byte, error) {
	messages, err := s.LoadTranscript(ctx, userID)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []chat.Message{}
	}

	data, err := json.MarshalIndent(Export{
		Metadata: ExportMetadata{Generated: time.Now().UTC(), Count: len(messages)},
		Messages: messages,
	}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode export: %w", err)
	}
	return data, nil
}

// FormatText writes one "[time] Speaker: text" block per message.
func FormatText(messages []chat.Message, generated time.Time) string {
	var b strings.Builder
	b.WriteString(exportTitle)
	b.WriteString("\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", generated.Format("2006-01-02 15:04:05 MST"))

	for _, msg := range messages {
		fmt.Fprintf(&b, "[%s] %s: %s\n\n", msg.Timestamp.Format("15:04:05"), speakerLabel(msg.Sender), msg.Text)
	}
	return b.String()
}

func speakerLabel(sender chat.Sender) string {
	if sender == chat.SenderUser {
		return "You"
	}
	return "BriefingBuddy"
}
