package httputil

// Wire tags of the public error envelope.
const (
	TagMissingEnv       = "missing_env"
	TagBadJSON          = "bad_json"
	TagUnauthorized     = "unauthorized"
	TagMissingFields    = "missing_fields"
	TagMissingCode      = "missing_code"
	TagInvalidInput     = "invalid_input"
	TagAlreadyExists    = "already_exists"
	TagNotFound         = "not_found"
	TagBadRecord        = "bad_record"
	TagStoreUnavailable = "store_unavailable"
	TagInternal         = "internal_error"
	TagRateLimited      = "rate_limited"
	TagMethodNotAllowed = "method_not_allowed"
	TagTimeout          = "timeout"
)

type message struct {
	vi string
	en string
}

var messages = map[string]message{
	TagMissingEnv:       {vi: "Chưa cấu hình ISSUE_SECRET.", en: "ISSUE_SECRET is not configured."},
	TagBadJSON:          {vi: "Body không hợp lệ.", en: "Invalid request body."},
	TagUnauthorized:     {vi: "Mã phát hành không đúng.", en: "Invalid issuing secret."},
	TagMissingFields:    {vi: "Thiếu code/name/issuer/issuedAt.", en: "Missing code/name/issuer/issuedAt."},
	TagMissingCode:      {vi: "Thiếu mã chứng chỉ.", en: "Missing credential code."},
	TagInvalidInput:     {vi: "Dữ liệu gửi lên vượt giới hạn cho phép.", en: "A field exceeds the allowed size."},
	TagAlreadyExists:    {vi: "Mã chứng chỉ đã tồn tại.", en: "Credential code already exists."},
	TagNotFound:         {vi: "Không tìm thấy.", en: "Not found."},
	TagBadRecord:        {vi: "Dữ liệu chứng chỉ bị lỗi.", en: "Credential record is corrupt."},
	TagStoreUnavailable: {vi: "Không truy cập được kho dữ liệu.", en: "Credential store is unavailable."},
	TagInternal:         {vi: "Lỗi máy chủ.", en: "Internal server error."},
	TagRateLimited:      {vi: "Quá nhiều yêu cầu, vui lòng thử lại sau.", en: "Too many requests. Please try again later."},
	TagMethodNotAllowed: {vi: "Phương thức không được hỗ trợ.", en: "Method not allowed."},
	TagTimeout:          {vi: "Yêu cầu xử lý quá lâu, vui lòng thử lại.", en: "Request timed out."},
}

func messageFor(tag string) message {
	if m, ok := messages[tag]; ok {
		return m
	}
	return messages[TagInternal]
}
