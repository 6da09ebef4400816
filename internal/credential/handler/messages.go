package handler

import "vcregistry/internal/credential/models"

type message struct {
	vi string
	en string
}

var statusMessages = map[models.Status]message{
	models.StatusIssued:   {vi: "Đã phát hành chứng chỉ.", en: "Credential issued."},
	models.StatusValid:    {vi: "Chứng chỉ hợp lệ.", en: "Credential is valid."},
	models.StatusRevoked:  {vi: "Chứng chỉ đã bị thu hồi.", en: "Credential has been revoked."},
	models.StatusExpired:  {vi: "Chứng chỉ đã hết hạn.", en: "Credential has expired."},
	models.StatusNotFound: {vi: "Không tìm thấy chứng chỉ.", en: "Credential not found."},
}

// revokeMessages describe the revocation itself rather than the resulting
// credential state.
var revokeMessages = map[models.Status]message{
	models.StatusRevoked:  {vi: "Đã thu hồi chứng chỉ.", en: "Credential revoked."},
	models.StatusNotFound: {vi: "Không tìm thấy chứng chỉ.", en: "Credential not found."},
}
