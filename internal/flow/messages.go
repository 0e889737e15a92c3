package flow

// Message keys rendered by the presentation shell through its i18n catalog.
const (
	MsgConfirmLoading = "confirm.loading"
	MsgConfirmSuccess = "confirm.success"
	MsgConfirmFailed  = "confirm.failed"

	MsgResetValidating = "reset.validating"
	MsgResetReady      = "reset.ready"
	MsgResetLinkFailed = "reset.link_failed"
	MsgResetTooShort   = "reset.too_short"
	MsgResetNotReady   = "reset.not_ready"
	MsgResetUpdating   = "reset.updating"
	MsgResetFailed     = "reset.failed"
	MsgResetSuccess    = "reset.success"

	MsgLinkInvalid = "link.invalid"
	MsgUnexpected  = "link.unexpected"
)
