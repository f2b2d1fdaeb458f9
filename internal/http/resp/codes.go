package resp

const (
	CodeOK             = "ok"
	CodeBadRequest     = "bad_request"
	CodeUpstreamFailed = "upstream_failed"
	CodeUnavailable    = "unavailable"
	CodeInternalError  = "internal_error"
)
