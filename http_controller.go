package storefront

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"

	"github.com/PlainAnoyn/go-storefront/middleware/tokenware"
)

// RegisterStoreRoutes mounts the trust and lifecycle endpoints on the app.
func RegisterStoreRoutes[T any](app router.Router[T], opts ...StoreControllerOption) {
	controller := NewStoreController(opts...)

	app.Get("/auth/session", controller.SessionShow).SetName("auth.session")
	app.Post("/auth/register", controller.RegisterPost).SetName("auth.register")
	app.Post("/auth/login", controller.LoginPost).SetName("auth.login")
	app.Post("/auth/logout", controller.LogoutPost).SetName("auth.logout")

	app.Post("/auth/resend-verification", controller.ResendVerificationPost).
		SetName("auth.verification.resend")
	app.Get("/auth/verify-email", controller.VerifyEmailGet).
		SetName("auth.verification.confirm")
	app.Post("/auth/change-password", controller.ChangePasswordPost).
		SetName("auth.password.change")

	app.Post("/orders/:id/payment", controller.OrderPaymentPost).
		SetName("orders.payment")
	app.Post("/orders/:id/fulfillment", controller.OrderFulfillmentPost).
		SetName("orders.fulfillment")

	app.Post("/users/:id/blacklist", controller.BlacklistPost).
		SetName("users.blacklist")
	app.Post("/users/:id/unblacklist", controller.UnblacklistPost).
		SetName("users.unblacklist")
}

type StoreController struct {
	Debug        bool
	Logger       Logger
	Repo         RepositoryManager
	Auther       *RouteSessionGuard
	Lifecycle    *OrderLifecycle
	Mailer       VerificationMailer
	Audit        *AuditTrail
	Config       Config
	ErrorHandler router.ErrorHandler
}

type StoreControllerOption func(*StoreController) *StoreController

func NewStoreController(opts ...StoreControllerOption) *StoreController {
	c := &StoreController{
		Logger: defLogger{},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Repo == nil {
		panic("Missing RepositoryManager in store controller...")
	}

	if c.Auther == nil {
		panic("Missing RouteSessionGuard in store controller...")
	}

	if c.Lifecycle == nil {
		c.Lifecycle = NewOrderLifecycle(c.Repo.Orders(), WithLifecycleAuditTrail(c.Audit))
	}

	if c.Config == nil {
		c.Config = DefaultRuntimeConfig("")
	}

	if c.ErrorHandler == nil {
		c.ErrorHandler = c.fail
	}

	return c
}

func WithControllerRepo(repo RepositoryManager) StoreControllerOption {
	return func(c *StoreController) *StoreController {
		c.Repo = repo
		return c
	}
}

func WithControllerAuther(auther *RouteSessionGuard) StoreControllerOption {
	return func(c *StoreController) *StoreController {
		c.Auther = auther
		return c
	}
}

func WithControllerLifecycle(lifecycle *OrderLifecycle) StoreControllerOption {
	return func(c *StoreController) *StoreController {
		c.Lifecycle = lifecycle
		return c
	}
}

func WithControllerMailer(mailer VerificationMailer) StoreControllerOption {
	return func(c *StoreController) *StoreController {
		c.Mailer = mailer
		return c
	}
}

func WithControllerAudit(trail *AuditTrail) StoreControllerOption {
	return func(c *StoreController) *StoreController {
		c.Audit = trail
		return c
	}
}

func WithControllerConfig(cfg Config) StoreControllerOption {
	return func(c *StoreController) *StoreController {
		c.Config = cfg
		return c
	}
}

func WithControllerLogger(logger Logger) StoreControllerOption {
	return func(c *StoreController) *StoreController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerDebug(debug bool) StoreControllerOption {
	return func(c *StoreController) *StoreController {
		c.Debug = debug
		return c
	}
}

// currentUser resolves the acting principal from the request credential.
// Blacklist and deleted-principal checks run on every call.
func (a *StoreController) currentUser(ctx router.Context) (*User, error) {
	extractors := tokenware.GetExtractors(a.Config.GetTokenLookup(), a.Config.GetAuthScheme())
	raw, _ := tokenware.ExtractRawTokenFromContext(ctx, extractors)
	return a.Auther.Guard().Authenticate(ctx.Context(), raw)
}

func (a *StoreController) SessionShow(ctx router.Context) error {
	user, err := a.currentUser(ctx)
	if err != nil {
		return a.fail(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"success": true,
		"user":    user.Public(),
	})
}

// RegistrationCreatePayload is the registration payload
type RegistrationCreatePayload struct {
	Name            string `form:"name" json:"name"`
	Username        string `form:"username" json:"username"`
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

// Validate will validate the payload
func (r RegistrationCreatePayload) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(MinPasswordLength, 100)),
		validation.Field(
			&r.ConfirmPassword,
			validation.Required,
			validation.By(ValidateStringEquals(r.Password)),
		),
	)
}

func (a *StoreController) RegisterPost(ctx router.Context) error {
	payload := new(RegistrationCreatePayload)

	if err := ctx.Bind(payload); err != nil {
		return a.fail(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "could not parse registration payload").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return a.validationFail(ctx, err)
	}

	handler := NewRegisterUserHandler(a.Repo)
	user, err := handler.Execute(ctx.Context(), RegisterUserMessage{
		Name:     payload.Name,
		Username: payload.Username,
		Email:    payload.Email,
		Password: payload.Password,
	})
	if err != nil {
		return a.fail(ctx, err)
	}

	return ctx.JSON(fiber.StatusCreated, map[string]any{
		"success": true,
		"user":    user.Public(),
	})
}

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
}

// GetIdentifier returns the identifier
func (r LoginRequest) GetIdentifier() string {
	return r.Identifier
}

// GetPassword will return the password
func (r LoginRequest) GetPassword() string {
	return r.Password
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Identifier,
			validation.Required,
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (a *StoreController) LoginPost(ctx router.Context) error {
	payload := new(LoginRequest)

	if err := ctx.Bind(payload); err != nil {
		return a.fail(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "could not parse login payload").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return a.validationFail(ctx, err)
	}

	if a.Debug {
		fmt.Println("======= STORE LOGIN ======")
		fmt.Println(print.MaybePrettyJSON(map[string]any{"identifier": payload.Identifier}))
		fmt.Println("==========================")
	}

	if err := a.Auther.Login(ctx, payload); err != nil {
		return a.fail(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"success": true,
	})
}

// LogoutPost clears the session cookie. It succeeds whether or not the
// request carried a valid session.
func (a *StoreController) LogoutPost(ctx router.Context) error {
	a.Auther.Logout(ctx)
	return ctx.JSON(fiber.StatusOK, map[string]any{
		"success": true,
	})
}

func (a *StoreController) ResendVerificationPost(ctx router.Context) error {
	user, err := a.currentUser(ctx)
	if err != nil {
		return a.fail(ctx, err)
	}

	handler := NewRequestVerificationHandler(a.Repo, a.Mailer).WithLogger(a.Logger)
	if err := handler.Execute(ctx.Context(), RequestVerificationMessage{UserID: user.ID}); err != nil {
		return a.fail(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"success": true,
	})
}

func (a *StoreController) VerifyEmailGet(ctx router.Context) error {
	token := ctx.Query("token", "")
	if token == "" {
		return a.fail(ctx, ErrVerificationInvalid)
	}

	handler := NewConfirmVerificationHandler(a.Repo).WithAuditTrail(a.Audit)
	user, err := handler.Execute(ctx.Context(), ConfirmVerificationMessage{Token: token})
	if err != nil {
		return a.fail(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"success": true,
		"user":    user.Public(),
	})
}

// ChangePasswordRequest payload
type ChangePasswordRequest struct {
	CurrentPassword string `form:"current_password" json:"current_password"`
	NewPassword     string `form:"new_password" json:"new_password"`
}

// Validate will run validation rules
func (r ChangePasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.CurrentPassword,
			validation.Required,
		),
		validation.Field(
			&r.NewPassword,
			validation.Required,
			validation.Length(MinPasswordLength, 100),
		),
	)
}

func (a *StoreController) ChangePasswordPost(ctx router.Context) error {
	user, err := a.currentUser(ctx)
	if err != nil {
		return a.fail(ctx, err)
	}

	payload := new(ChangePasswordRequest)
	if err := ctx.Bind(payload); err != nil {
		return a.fail(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "could not parse password payload").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return a.validationFail(ctx, err)
	}

	handler := NewChangePasswordHandler(a.Repo).WithAuditTrail(a.Audit).WithLogger(a.Logger)
	if err := handler.Execute(ctx.Context(), ChangePasswordMessage{
		UserID:          user.ID,
		CurrentPassword: payload.CurrentPassword,
		NewPassword:     payload.NewPassword,
	}); err != nil {
		return a.fail(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"success": true,
	})
}

// PaymentCallbackRequest payload
type PaymentCallbackRequest struct {
	PaymentID *string `form:"payment_id" json:"payment_id"`
	Status    string  `form:"status" json:"status"`
}

// Validate will run validation rules
func (r PaymentCallbackRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Status,
			validation.Required,
		),
	)
}

func (a *StoreController) OrderPaymentPost(ctx router.Context) error {
	user, err := a.currentUser(ctx)
	if err != nil {
		return a.fail(ctx, err)
	}

	orderID, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return a.fail(ctx, ErrOrderNotFound)
	}

	payload := new(PaymentCallbackRequest)
	if err := ctx.Bind(payload); err != nil {
		return a.fail(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "could not parse payment payload").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return a.validationFail(ctx, err)
	}

	receipt, err := a.Lifecycle.ConfirmPayment(ctx.Context(), user, orderID, PaymentUpdate{
		PaymentID: payload.PaymentID,
		Status:    payload.Status,
	}, ProvenanceFromRequest(ctx))
	if err != nil {
		return a.fail(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"success": true,
		"receipt": receipt,
	})
}

// FulfillmentRequest payload
type FulfillmentRequest struct {
	Status string `form:"status" json:"status"`
}

// Validate will run validation rules
func (r FulfillmentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Status,
			validation.Required,
			validation.In(
				OrderProcessing,
				OrderShipped,
				OrderDelivered,
				OrderCancelled,
			),
		),
	)
}

func (a *StoreController) OrderFulfillmentPost(ctx router.Context) error {
	user, err := a.currentUser(ctx)
	if err != nil {
		return a.fail(ctx, err)
	}

	orderID, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return a.fail(ctx, ErrOrderNotFound)
	}

	payload := new(FulfillmentRequest)
	if err := ctx.Bind(payload); err != nil {
		return a.fail(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "could not parse fulfillment payload").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return a.validationFail(ctx, err)
	}

	order, err := a.Lifecycle.AdvanceFulfillment(ctx.Context(), user, orderID, payload.Status, ProvenanceFromRequest(ctx))
	if err != nil {
		return a.fail(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"success": true,
		"order":   order,
	})
}

// BlacklistRequest payload
type BlacklistRequest struct {
	Reason string `form:"reason" json:"reason"`
}

// Validate will run validation rules
func (r BlacklistRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Reason,
			validation.Required,
			validation.Length(3, 500),
		),
	)
}

func (a *StoreController) BlacklistPost(ctx router.Context) error {
	actor, err := a.currentUser(ctx)
	if err != nil {
		return a.fail(ctx, err)
	}

	targetID, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return a.fail(ctx, goerrors.New("user not found", goerrors.CategoryNotFound).
			WithCode(goerrors.CodeNotFound))
	}

	payload := new(BlacklistRequest)
	if err := ctx.Bind(payload); err != nil {
		return a.fail(ctx, goerrors.Wrap(err, goerrors.CategoryBadInput, "could not parse blacklist payload").
			WithCode(goerrors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return a.validationFail(ctx, err)
	}

	handler := NewBlacklistUserHandler(a.Repo).WithAuditTrail(a.Audit).WithLogger(a.Logger)
	if err := handler.Execute(ctx.Context(), BlacklistUserMessage{
		TargetID: targetID,
		Reason:   payload.Reason,
		Actor:    actor,
		Request:  ProvenanceFromRequest(ctx),
	}); err != nil {
		return a.fail(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"success": true,
	})
}

func (a *StoreController) UnblacklistPost(ctx router.Context) error {
	actor, err := a.currentUser(ctx)
	if err != nil {
		return a.fail(ctx, err)
	}

	targetID, err := uuid.Parse(ctx.Param("id", ""))
	if err != nil {
		return a.fail(ctx, goerrors.New("user not found", goerrors.CategoryNotFound).
			WithCode(goerrors.CodeNotFound))
	}

	handler := NewUnblacklistUserHandler(a.Repo).WithAuditTrail(a.Audit).WithLogger(a.Logger)
	if err := handler.Execute(ctx.Context(), UnblacklistUserMessage{
		TargetID: targetID,
		Actor:    actor,
		Request:  ProvenanceFromRequest(ctx),
	}); err != nil {
		return a.fail(ctx, err)
	}

	return ctx.JSON(fiber.StatusOK, map[string]any{
		"success": true,
	})
}

func (a *StoreController) validationFail(ctx router.Context, err error) error {
	return ctx.JSON(fiber.StatusBadRequest, map[string]any{
		"success":    false,
		"error":      map[string]any{"message": "validation failed"},
		"validation": FormatValidationErrorToMap(err),
	})
}

func (a *StoreController) fail(ctx router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred").
			WithCode(goerrors.CodeInternal)
	}

	a.Logger.Info(
		"request error %s (%s): %s",
		richErr.Message,
		richErr.Category,
		print.MaybePrettyJSON(richErr.Metadata),
	)

	return ctx.JSON(statusForError(richErr), map[string]any{
		"success": false,
		"error": map[string]any{
			"message":   richErr.Message,
			"text_code": richErr.TextCode,
		},
	})
}

// ValidateStringEquals will check that both values match
func ValidateStringEquals(str string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if s != str {
			return errors.New("values must match")
		}
		return nil
	}
}

// FormatValidationErrorToMap flattens ozzo validation errors to field->message.
func FormatValidationErrorToMap(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}

	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			out[field] = ferr.Error()
		}
		return out
	}

	out["error"] = err.Error()
	return out
}
