package register

// Submission field names. Steps reference these instead of bare literals so
// renderers and tests agree on the form contract.
const (
	FieldEmail           = "email"
	FieldEmailConfirm    = "email-confirm"
	FieldPassword        = "password"
	FieldPasswordConfirm = "password-confirm"
	FieldCivility        = "civility"
	FieldLastName        = "lastName"
	FieldFirstName       = "firstName"
	FieldProfile         = "profile"
	FieldUAI             = "uai"
	FieldNewsletter      = "newsletter"
	FieldCGU             = "cgu"
	FieldCaptchaToken    = "captcha-token"
)

// Message keys returned with field errors. The rendering layer owns the
// localized texts; the flow only names them.
const (
	msgMissingEmail           = "missingEmailMessage"
	msgInvalidEmail           = "invalidEmailMessage"
	msgEmailExists            = "emailExistsMessage"
	msgInvalidEmailConfirm    = "invalidEmailConfirmMessage"
	msgMissingPassword        = "missingPasswordMessage"
	msgInvalidPasswordConfirm = "invalidPasswordConfirmMessage"
	msgChallengeFailed        = "recaptchaFailed"
)
