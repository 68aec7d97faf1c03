package domain

type ContentKind string

const (
	ContentInline ContentKind = "inline"
	ContentRemote ContentKind = "remote"
	ContentText   ContentKind = "text"
)

// ContentHandle is an ingested source ready for submission to the model:
// an inline base64 payload, a remote file reference, or extracted text.
type ContentHandle struct {
	Kind       ContentKind `json:"kind"`
	MimeType   string      `json:"mime_type"`
	Data       string      `json:"-"`
	URI        string      `json:"uri,omitempty"`
	RemoteName string      `json:"remote_name,omitempty"`
	Text       string      `json:"-"`
}

func (h ContentHandle) Part() ContentPart {
	switch h.Kind {
	case ContentRemote:
		return ContentPart{File: &FileRef{MimeType: h.MimeType, URI: h.URI}}
	case ContentText:
		return ContentPart{Text: h.Text}
	default:
		return ContentPart{Inline: &InlineData{MimeType: h.MimeType, Data: h.Data}}
	}
}

type InlineData struct {
	MimeType string
	Data     string
}

type FileRef struct {
	MimeType string
	URI      string
}

// ContentPart is one element of a model request. Exactly one field is set.
type ContentPart struct {
	Text   string
	Inline *InlineData
	File   *FileRef
}

func TextPart(text string) ContentPart {
	return ContentPart{Text: text}
}

type RemoteFileState string

const (
	RemoteProcessing RemoteFileState = "PROCESSING"
	RemoteActive     RemoteFileState = "ACTIVE"
	RemoteFailed     RemoteFileState = "FAILED"
)

type RemoteFile struct {
	Name     string
	URI      string
	MimeType string
	State    RemoteFileState
}

// GenerationRequest is one structured-generation invocation.
type GenerationRequest struct {
	Name         string
	Parts        []ContentPart
	SystemPrompt string
	Schema       map[string]any
	Temperature  float64
}
