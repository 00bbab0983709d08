package reason

import "net/http"

// Header is the response header carrying the reason token of a failed call.
const Header = "X-Callspec-Error-Reason"

// Write writes err as an error response: the reason's status, the reason
// header and a plain text message. Causes of permanent errors are not
// exposed.
func Write(w http.ResponseWriter, err error) {
	re := From(err)
	if re == nil {
		re = New(UnexpectedPermanentError, "")
	}
	status := re.Reason.Status()
	w.Header().Set(Header, re.Reason.String())
	http.Error(w, re.publicMessage(status), status)
}

func (e *Error) publicMessage(status int) string {
	switch {
	case e.Message != "":
		return e.Message
	case e.Cause != nil && e.Reason != UnexpectedPermanentError:
		return e.Cause.Error()
	}
	return http.StatusText(status)
}
