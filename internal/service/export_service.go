package service

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"app/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-pdf/fpdf"
	"github.com/rs/zerolog"
)

const presignedURLTTL = 15 * time.Minute

// ExportService renders a conversation transcript as a PDF, stores it
// in the exports bucket and hands back a short-lived download URL.
type ExportService interface {
	ExportConversation(ctx context.Context, userID string, conversation *model.Conversation, messages []model.Message) (string, error)
}

type exportService struct {
	s3Client      *s3.Client
	presignClient *s3.PresignClient
	bucketName    string
	logger        zerolog.Logger
}

func NewExportService(s3Client *s3.Client, bucketName string, logger zerolog.Logger) ExportService {
	return &exportService{
		s3Client:      s3Client,
		presignClient: s3.NewPresignClient(s3Client),
		bucketName:    bucketName,
		logger:        logger.With().Str("service", "ExportService").Logger(),
	}
}

// ExportConversation renders, uploads and presigns in one shot.
func (s *exportService) ExportConversation(ctx context.Context, userID string, conversation *model.Conversation, messages []model.Message) (string, error) {
	pdfBytes, err := renderTranscript(conversation, messages)
	if err != nil {
		s.logger.Error().Err(err).Str("conversation_id", conversation.ID).Msg("Failed to render transcript PDF")
		return "", fmt.Errorf("rendering transcript: %w", err)
	}

	storagePath := fmt.Sprintf("exports/%s/%s-%d.pdf", userID, conversation.ID, time.Now().Unix())
	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(storagePath),
		Body:        bytes.NewReader(pdfBytes),
		ContentType: aws.String("application/pdf"),
	})
	if err != nil {
		s.logger.Error().Err(err).Str("storage_path", storagePath).Msg("Failed to upload transcript PDF")
		return "", fmt.Errorf("uploading transcript: %w", err)
	}

	resp, err := s.presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(storagePath),
	}, s3.WithPresignExpires(presignedURLTTL))
	if err != nil {
		s.logger.Error().Err(err).Str("storage_path", storagePath).Msg("Failed to generate presigned URL")
		return "", fmt.Errorf("generating presigned URL: %w", err)
	}

	s.logger.Info().Str("conversation_id", conversation.ID).Str("storage_path", storagePath).Msg("Conversation exported")
	return resp.URL, nil
}

// renderTranscript lays out the conversation as an A4 document.
func renderTranscript(conversation *model.Conversation, messages []model.Message) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 16)
	pdf.MultiCell(0, 8, tr(conversation.Title), "", "L", false)

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Exporté le %s", time.Now().Format("02/01/2006 15:04"))), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	for _, msg := range messages {
		label := "Vous"
		if msg.Role == "assistant" {
			label = "Assistant"
		}
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(0, 6, tr(fmt.Sprintf("%s — %s", label, msg.CreatedAt.Format("02/01/2006 15:04"))), "", 1, "L", false, 0, "")

		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 5.5, tr(msg.Content), "", "L", false)
		pdf.Ln(3)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
