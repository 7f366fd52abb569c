package capture

import (
	"net/http"
	"strings"

	"github.com/orgball2608/storyshare/internal/domain"
	"github.com/orgball2608/storyshare/pkg/errors"
)

// FromFile is the picker route: it turns a selected file straight into
// captured media without touching the device. An empty or missing content
// type is sniffed from the data.
func FromFile(contentType string, data []byte) (domain.CapturedMedia, error) {
	if len(data) == 0 {
		return domain.CapturedMedia{}, errors.WrapWithCode(errors.ErrInvalidInput, errors.CodeInvalidInput, "selected file is empty")
	}
	contentType = strings.TrimSpace(strings.Split(contentType, ";")[0])
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = strings.Split(http.DetectContentType(data), ";")[0]
	}
	return domain.CapturedMedia{
		Kind:        domain.KindForContentType(contentType),
		ContentType: contentType,
		Data:        data,
	}, nil
}
