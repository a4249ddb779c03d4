package response

import (
	"errors"
	"net/http"
	"strings"

	"anoa.com/peerlink/pkg/apperror"
	commonDto "anoa.com/peerlink/pkg/dto"
	"github.com/gin-gonic/gin"
)

const maxImageSize = 5 << 20

// FormImage opens the first of fields present in a multipart request. It returns
// nil when the request is not multipart or carries none of them. The caller must
// call the returned close func.
func FormImage(c *gin.Context, fields ...string) (*commonDto.UploadFile, func(), error) {
	noop := func() {}
	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		return nil, noop, nil
	}

	for _, field := range fields {
		header, err := c.FormFile(field)
		if errors.Is(err, http.ErrMissingFile) {
			continue
		}
		if err != nil {
			return nil, noop, apperror.New(http.StatusBadRequest, "failed to read "+field, apperror.ErrInvalidInput)
		}
		if header.Size > maxImageSize {
			return nil, noop, apperror.New(http.StatusBadRequest, field+" exceeds 5MB", apperror.ErrInvalidInput)
		}

		file, err := header.Open()
		if err != nil {
			return nil, noop, apperror.New(http.StatusBadRequest, "failed to open "+field, apperror.ErrInvalidInput)
		}
		return &commonDto.UploadFile{Reader: file, FileName: header.Filename}, func() { file.Close() }, nil
	}
	return nil, noop, nil
}
