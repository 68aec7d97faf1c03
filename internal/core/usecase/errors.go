package usecase

import (
	"errors"

	"github.com/kirillkom/interview-insights/internal/core/domain"
)

const QuotaExhaustedMessage = "The AI service ran out of quota while analysing this file. " +
	"Try a shorter clip, upload the audio track instead of the video, or paste a plain transcript."

const QueueUnavailableMessage = "The file was stored but could not be queued for analysis. Remove it and upload it again."

// UserMessage turns a pipeline failure into the text shown next to the file
// and on the project banner.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var parseErr *domain.ParseError
	switch {
	case errors.Is(err, domain.ErrQuotaExhausted):
		return QuotaExhaustedMessage
	case errors.Is(err, domain.ErrSizeLimit):
		return "The file exceeds the upload size limit. Try a shorter clip, an audio file, or a plain transcript."
	case errors.Is(err, domain.ErrIngestionTimeout):
		return "The AI service took too long to prepare the file. Try again or upload a smaller file."
	case errors.Is(err, domain.ErrProcessingFailed):
		return "The AI service could not process this file. Check that it is a playable media file."
	case errors.As(err, &parseErr) && parseErr.Truncated:
		return "The analysis was cut off because the output was too long. Try a shorter recording or split the transcript."
	case errors.Is(err, domain.ErrMalformedResponse):
		return "The AI service returned an unreadable analysis. Please try again."
	default:
		return err.Error()
	}
}
