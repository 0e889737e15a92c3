package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.Spanish

	// Layout
	message.SetString(lang, "meta.description", "Plataforma segura y profesional para convivencia compartida.")
	message.SetString(lang, "footer.support", "Soporte de acceso")

	// Landing page
	message.SetString(lang, "landing.title", "Web Auxiliar")
	message.SetString(lang, "landing.body", "Este sitio se utiliza para la confirmación de cuentas y el restablecimiento de contraseñas de la aplicación móvil %s.")
	message.SetString(lang, "landing.routes", "Rutas disponibles")
	message.SetString(lang, "landing.route.callback", "Confirmación de cuenta")
	message.SetString(lang, "landing.route.reset", "Restablecer contraseña")

	// Confirmation page
	message.SetString(lang, "confirm.title", "Confirmación de cuenta")
	message.SetString(lang, "confirm.loading", "Procesando autenticación…")
	message.SetString(lang, "confirm.success", "¡Listo! Tu cuenta fue confirmada. Estamos abriendo la app…")
	message.SetString(lang, "confirm.failed", "No se pudo confirmar la cuenta. Verifica el enlace o intenta nuevamente desde la app.")
	message.SetString(lang, "confirm.hint", "Si la app no se abre automáticamente, vuelve a la aplicación e inicia sesión.")
	message.SetString(lang, "confirm.open_app", "Abrir la app")

	// Reset page
	message.SetString(lang, "reset.title", "Restablecer contraseña")
	message.SetString(lang, "reset.validating", "Validando enlace de restablecimiento...")
	message.SetString(lang, "reset.ready", "Ingresa tu nueva contraseña.")
	message.SetString(lang, "reset.link_failed", "Error al validar el enlace")
	message.SetString(lang, "reset.too_short", "La contraseña debe tener al menos 6 caracteres.")
	message.SetString(lang, "reset.not_ready", "Primero debes validar el enlace de restablecimiento. Ábrelo de nuevo desde tu correo.")
	message.SetString(lang, "reset.updating", "Actualizando contraseña...")
	message.SetString(lang, "reset.failed", "No se pudo actualizar la contraseña")
	message.SetString(lang, "reset.success", "Contraseña actualizada con éxito. Ya puedes iniciar sesión en la app.")
	message.SetString(lang, "reset.label", "Nueva contraseña")
	message.SetString(lang, "reset.submit", "Actualizar contraseña")

	// Shared
	message.SetString(lang, "link.invalid", "Enlace inválido o incompleto. Solicita un nuevo enlace desde la app.")
	message.SetString(lang, "link.unexpected", "Ocurrió un error al procesar el enlace. Intenta nuevamente.")
	message.SetString(lang, "error.rate_limited", "Demasiados intentos. Espera un momento e inténtalo de nuevo.")
}
