package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.English

	// Layout
	message.SetString(lang, "meta.description", "A safe, professional platform for shared living.")
	message.SetString(lang, "footer.support", "Access support")

	// Landing page
	message.SetString(lang, "landing.title", "Companion site")
	message.SetString(lang, "landing.body", "This site handles account confirmation and password resets for the %s mobile app.")
	message.SetString(lang, "landing.routes", "Available routes")
	message.SetString(lang, "landing.route.callback", "Account confirmation")
	message.SetString(lang, "landing.route.reset", "Reset password")

	// Confirmation page
	message.SetString(lang, "confirm.title", "Account confirmation")
	message.SetString(lang, "confirm.loading", "Processing authentication…")
	message.SetString(lang, "confirm.success", "Done! Your account is confirmed. Opening the app…")
	message.SetString(lang, "confirm.failed", "We could not confirm your account. Check the link or try again from the app.")
	message.SetString(lang, "confirm.hint", "If the app does not open automatically, go back to it and sign in.")
	message.SetString(lang, "confirm.open_app", "Open the app")

	// Reset page
	message.SetString(lang, "reset.title", "Reset password")
	message.SetString(lang, "reset.validating", "Validating reset link...")
	message.SetString(lang, "reset.ready", "Enter your new password.")
	message.SetString(lang, "reset.link_failed", "Could not validate the link")
	message.SetString(lang, "reset.too_short", "The password must be at least 6 characters long.")
	message.SetString(lang, "reset.not_ready", "You must validate the reset link first. Open it again from your email.")
	message.SetString(lang, "reset.updating", "Updating password...")
	message.SetString(lang, "reset.failed", "Could not update the password")
	message.SetString(lang, "reset.success", "Password updated. You can now sign in to the app.")
	message.SetString(lang, "reset.label", "New password")
	message.SetString(lang, "reset.submit", "Update password")

	// Shared
	message.SetString(lang, "link.invalid", "Invalid or incomplete link. Request a new one from the app.")
	message.SetString(lang, "link.unexpected", "Something went wrong while processing the link. Please try again.")
	message.SetString(lang, "error.rate_limited", "Too many attempts. Wait a moment and try again.")
}
