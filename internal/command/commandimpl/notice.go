package commandimpl

import (
	"github.com/orgball2608/storyshare/pkg/errors"
)

// userNotice turns a failure into the message shown in the chat.
func userNotice(err error) string {
	switch {
	case errors.IsAuth(err), errors.IsInvalidInput(err), errors.IsAcquisition(err):
		return errors.GetMessage(err)
	case errors.IsUpload(err):
		return "Upload failed, nothing was published. Send the photo or video again to retry."
	case errors.IsRecord(err):
		return "Something went wrong while saving. Please try again."
	case errors.IsNotFound(err):
		return "Not found. It may have been deleted."
	case errors.IsForbidden(err):
		return "You can only change your own stories."
	default:
		return "Something went wrong. Please try again."
	}
}
