package utils

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
)

const (
	// MaxFileSize is 10MB in bytes
	MaxFileSize = 10 * 1024 * 1024
)

// AllowedAttachmentFormats are the extensions accepted on service order attachments
var AllowedAttachmentFormats = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".heic": true,
	".webp": true,
	".pdf":  true,
	".txt":  true,
	".doc":  true,
	".docx": true,
	".xls":  true,
	".xlsx": true,
}

// FileUploadError represents a file upload validation error
type FileUploadError struct {
	Code    string
	Message string
}

func (e *FileUploadError) Error() string {
	return e.Message
}

// Attachment is a decoded upload ready to be stored
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// DecodeAttachment validates the file name and decodes fileData, which may be
// plain base64 or a data URL ("data:<mime>;base64,<payload>").
func DecodeAttachment(fileName, fileData string) (*Attachment, error) {
	name := filepath.Base(strings.TrimSpace(fileName))
	if name == "" || name == "." || name == "/" || fileData == "" {
		return nil, &FileUploadError{
			Code:    "NO_FILE",
			Message: "Nome e conteúdo do arquivo são obrigatórios.",
		}
	}

	ext := strings.ToLower(filepath.Ext(name))
	if !AllowedAttachmentFormats[ext] {
		return nil, &FileUploadError{
			Code:    "INVALID_FILE_FORMAT",
			Message: fmt.Sprintf("Formato de arquivo não permitido: %s", ext),
		}
	}

	contentType, data, err := decodeData(fileData)
	if err != nil {
		return nil, err
	}
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	return &Attachment{Name: name, ContentType: contentType, Data: data}, nil
}

// ValidateProfilePhoto accepts only image data URLs within the size limit
func ValidateProfilePhoto(photo string) error {
	if strings.TrimSpace(photo) == "" {
		return &FileUploadError{Code: "NO_FILE", Message: "Nenhuma imagem fornecida."}
	}
	contentType, _, err := decodeData(photo)
	if err != nil {
		return err
	}
	if !strings.HasPrefix(contentType, "image/") {
		return &FileUploadError{
			Code:    "INVALID_FILE_FORMAT",
			Message: "A foto de perfil deve ser uma imagem.",
		}
	}
	return nil
}

func decodeData(raw string) (contentType string, data []byte, err error) {
	payload := raw
	if strings.HasPrefix(raw, "data:") {
		header, body, ok := strings.Cut(raw, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return "", nil, &FileUploadError{
				Code:    "INVALID_FILE_DATA",
				Message: "Conteúdo do arquivo inválido.",
			}
		}
		contentType = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		payload = body
	}

	// Reject before decoding; base64 expands by 4/3
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxFileSize+2 {
		return "", nil, tooLarge()
	}

	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, &FileUploadError{
			Code:    "INVALID_FILE_DATA",
			Message: "Conteúdo do arquivo inválido.",
		}
	}
	if len(data) > MaxFileSize {
		return "", nil, tooLarge()
	}
	return contentType, data, nil
}

func tooLarge() error {
	return &FileUploadError{
		Code:    "FILE_TOO_LARGE",
		Message: fmt.Sprintf("O arquivo excede o tamanho máximo de %d MB.", MaxFileSize/(1024*1024)),
	}
}
