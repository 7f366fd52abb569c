package publishimpl

import (
	"encoding/base64"
	"net/url"
	"strings"

	"github.com/orgball2608/storyshare/internal/domain"
	"github.com/orgball2608/storyshare/pkg/errors"
)

// encode turns captured media into upload bytes and a content type. Media
// from the picker route may only carry a data: URI.
func encode(media domain.CapturedMedia) ([]byte, string, error) {
	contentType := media.ContentType
	data := media.Data

	if len(data) == 0 && media.URI != "" {
		decoded, uriType, err := decodeDataURI(media.URI)
		if err != nil {
			return nil, "", errors.WrapWithCode(err, errors.CodeInvalidInput, "unable to read captured media")
		}
		data = decoded
		if contentType == "" {
			contentType = uriType
		}
	}

	if len(data) == 0 {
		return nil, "", errors.NewWithCode(errors.CodeInvalidInput, "captured media is empty")
	}
	if contentType == "" {
		if media.Kind == domain.MediaVideo {
			contentType = domain.ContentTypeWebM
		} else {
			contentType = domain.ContentTypeJPEG
		}
	}
	return data, contentType, nil
}

// decodeDataURI parses data:[<mediatype>][;base64],<data>.
func decodeDataURI(uri string) ([]byte, string, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, "", errors.NewWithCode(errors.CodeInvalidInput, "not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", errors.NewWithCode(errors.CodeInvalidInput, "malformed data URI")
	}

	isBase64 := false
	if m, found := strings.CutSuffix(meta, ";base64"); found {
		meta, isBase64 = m, true
	}
	contentType, _, _ := strings.Cut(meta, ";")

	if isBase64 {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, "", errors.WrapWithCode(err, errors.CodeInvalidInput, "malformed base64 payload")
		}
		return data, contentType, nil
	}
	text, err := url.PathUnescape(payload)
	if err != nil {
		return nil, "", errors.WrapWithCode(err, errors.CodeInvalidInput, "malformed data URI payload")
	}
	return []byte(text), contentType, nil
}
