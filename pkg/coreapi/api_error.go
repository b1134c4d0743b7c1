package coreapi

import (
	"errors"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/fivetwenty-io/paycore/internal/constants"
)

// ErrorKind tags an APIError variant.
type ErrorKind int

// Status 200: request accepted and processed, business rule rejected it.
const (
	KindUnknown ErrorKind = iota
	KindOrderRefused
	KindAuthorizationRejected
	KindAlreadyAuthorized
	KindInappropriateStatus
	KindOrderExpired
	KindIdentificationRequired
	KindAccountAlreadyIdentified
	KindPersonificationRefused
	KindRecipientAccountClosed
	KindInsufficientFunds
	KindOperationNotSupported
	KindPartialRefundNotAllowed
	KindIllegalParameters
	KindPayerNotFound

	// Status 202: accepted, final state unknown.
	KindRequestStateUnknown

	// Status 400: request rejected.
	KindSyntaxError
	KindIllegalHeader
	KindIllegalParameter
	KindIntervalTooLarge
	KindOrderDuplication
	KindAmountRemainderTooLow

	// Status 401: authentication failed.
	KindInvalidToken
	KindIllegalSignature

	// Status 403: operation not allowed for the user.
	KindSourceNotAllowed
	KindMethodNotAllowed
	KindRecipientNotAllowed
	KindInstrumentNotAllowed
	KindOperationForbidden
	KindInvalidScope
	KindParameterNotAllowed

	// Status 500: technical error, retry to learn the final state.
	KindTechnicalError

	// OAuth2 wallet registration.
	KindPhoneNumberRefused
	KindApplicationBlocked
	KindAlreadyExists
	KindLinkedPhoneRequired
	KindLimitExceeded

	// Payments API v1.
	KindAccountBlocked
	KindExtActionRequired
)

var kindNames = map[ErrorKind]string{
	KindUnknown:                  "unknown",
	KindOrderRefused:             "orderRefused",
	KindAuthorizationRejected:    "authorizationRejected",
	KindAlreadyAuthorized:        "alreadyAuthorized",
	KindInappropriateStatus:      "inappropriateStatus",
	KindOrderExpired:             "orderExpired",
	KindIdentificationRequired:   "identificationRequired",
	KindAccountAlreadyIdentified: "accountAlreadyIdentified",
	KindPersonificationRefused:   "personificationRefused",
	KindRecipientAccountClosed:   "recipientAccountClosed",
	KindInsufficientFunds:        "insufficientFunds",
	KindOperationNotSupported:    "operationNotSupported",
	KindPartialRefundNotAllowed:  "partialRefundNotAllowed",
	KindIllegalParameters:        "illegalParameters",
	KindPayerNotFound:            "payerNotFound",
	KindRequestStateUnknown:      "requestStateUnknown",
	KindSyntaxError:              "syntaxError",
	KindIllegalHeader:            "illegalHeader",
	KindIllegalParameter:         "illegalParameter",
	KindIntervalTooLarge:         "intervalTooLarge",
	KindOrderDuplication:         "orderDuplication",
	KindAmountRemainderTooLow:    "amountRemainderTooLow",
	KindInvalidToken:             "invalidToken",
	KindIllegalSignature:         "illegalSignature",
	KindSourceNotAllowed:         "sourceNotAllowed",
	KindMethodNotAllowed:         "methodNotAllowed",
	KindRecipientNotAllowed:      "recipientNotAllowed",
	KindInstrumentNotAllowed:     "instrumentNotAllowed",
	KindOperationForbidden:       "operationForbidden",
	KindInvalidScope:             "invalidScope",
	KindParameterNotAllowed:      "parameterNotAllowed",
	KindTechnicalError:           "technicalError",
	KindPhoneNumberRefused:       "phoneNumberRefused",
	KindApplicationBlocked:       "applicationBlocked",
	KindAlreadyExists:            "alreadyExists",
	KindLinkedPhoneRequired:      "linkedPhoneRequired",
	KindLimitExceeded:            "limitExceeded",
	KindAccountBlocked:           "accountBlocked",
	KindExtActionRequired:        "extActionRequired",
}

// String implements fmt.Stringer.
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// APIError is a business-rule rejection decoded from a response body.
//
// Only the fields relevant to Kind are set: Status for inappropriateStatus,
// ParameterName for the parameter variants, URI for accountBlocked and
// extActionRequired, NextRetry for requestStateUnknown and technicalError,
// Code for unknown.
type APIError struct {
	Kind          ErrorKind
	Code          string
	Status        string
	ParameterName string
	URI           string
	NextRetry     time.Duration
}

// Sentinels for errors.Is. Matching compares Kind only.
var (
	ErrOrderRefused             = &APIError{Kind: KindOrderRefused}
	ErrAuthorizationRejected    = &APIError{Kind: KindAuthorizationRejected}
	ErrAlreadyAuthorized        = &APIError{Kind: KindAlreadyAuthorized}
	ErrInappropriateStatus      = &APIError{Kind: KindInappropriateStatus}
	ErrOrderExpired             = &APIError{Kind: KindOrderExpired}
	ErrIdentificationRequired   = &APIError{Kind: KindIdentificationRequired}
	ErrAccountAlreadyIdentified = &APIError{Kind: KindAccountAlreadyIdentified}
	ErrPersonificationRefused   = &APIError{Kind: KindPersonificationRefused}
	ErrRecipientAccountClosed   = &APIError{Kind: KindRecipientAccountClosed}
	ErrInsufficientFunds        = &APIError{Kind: KindInsufficientFunds}
	ErrOperationNotSupported    = &APIError{Kind: KindOperationNotSupported}
	ErrPartialRefundNotAllowed  = &APIError{Kind: KindPartialRefundNotAllowed}
	ErrIllegalParameters        = &APIError{Kind: KindIllegalParameters}
	ErrPayerNotFound            = &APIError{Kind: KindPayerNotFound}
	ErrRequestStateUnknown      = &APIError{Kind: KindRequestStateUnknown}
	ErrSyntaxError              = &APIError{Kind: KindSyntaxError}
	ErrIllegalHeader            = &APIError{Kind: KindIllegalHeader}
	ErrIllegalParameter         = &APIError{Kind: KindIllegalParameter}
	ErrIntervalTooLarge         = &APIError{Kind: KindIntervalTooLarge}
	ErrOrderDuplication         = &APIError{Kind: KindOrderDuplication}
	ErrAmountRemainderTooLow    = &APIError{Kind: KindAmountRemainderTooLow}
	ErrInvalidToken             = &APIError{Kind: KindInvalidToken}
	ErrIllegalSignature         = &APIError{Kind: KindIllegalSignature}
	ErrSourceNotAllowed         = &APIError{Kind: KindSourceNotAllowed}
	ErrMethodNotAllowed         = &APIError{Kind: KindMethodNotAllowed}
	ErrRecipientNotAllowed      = &APIError{Kind: KindRecipientNotAllowed}
	ErrInstrumentNotAllowed     = &APIError{Kind: KindInstrumentNotAllowed}
	ErrOperationForbidden       = &APIError{Kind: KindOperationForbidden}
	ErrInvalidScope             = &APIError{Kind: KindInvalidScope}
	ErrParameterNotAllowed      = &APIError{Kind: KindParameterNotAllowed}
	ErrTechnicalError           = &APIError{Kind: KindTechnicalError}
	ErrPhoneNumberRefused       = &APIError{Kind: KindPhoneNumberRefused}
	ErrApplicationBlocked       = &APIError{Kind: KindApplicationBlocked}
	ErrAlreadyExists            = &APIError{Kind: KindAlreadyExists}
	ErrLinkedPhoneRequired      = &APIError{Kind: KindLinkedPhoneRequired}
	ErrLimitExceeded            = &APIError{Kind: KindLimitExceeded}
	ErrAccountBlocked           = &APIError{Kind: KindAccountBlocked}
	ErrExtActionRequired        = &APIError{Kind: KindExtActionRequired}
	ErrUnknown                  = &APIError{Kind: KindUnknown}
)

// Error implements the error interface.
//
//nolint:cyclop,funlen
func (e *APIError) Error() string {
	switch e.Kind {
	case KindOrderRefused:
		return "Refused by merchant or no payment method available"
	case KindAuthorizationRejected:
		return "Payment authorization rejected"
	case KindAlreadyAuthorized:
		return "Order already authorized"
	case KindInappropriateStatus:
		return fmt.Sprintf("Operation not allowed for order with status '%s'", e.Status)
	case KindOrderExpired:
		return "Trying to pay expired order"
	case KindIdentificationRequired:
		return "User identification required. Order finally rejected"
	case KindAccountAlreadyIdentified:
		return "Account already identified"
	case KindPersonificationRefused:
		return "Operation of personification refused. Incorrect personification data"
	case KindRecipientAccountClosed:
		return "Recipient account closed"
	case KindInsufficientFunds:
		return "Not enough funds for this order"
	case KindOperationNotSupported:
		return "Operation not supported for this order"
	case KindPartialRefundNotAllowed:
		return "Partial refund not allowed for this order type"
	case KindIllegalParameters:
		return "Merchant rejected parameters"
	case KindPayerNotFound:
		return "Payer account not found in merchant's register"
	case KindRequestStateUnknown:
		return fmt.Sprintf("Request state unknown and should be repeated to get final state. Retry in %d ms",
			e.NextRetry.Milliseconds())
	case KindSyntaxError:
		return "HTTP request or JWS parsing failed"
	case KindIllegalHeader:
		return fmt.Sprintf("JWS header missing or holds illegal values for '%s'", e.ParameterName)
	case KindIllegalParameter:
		return fmt.Sprintf("JWS payload missing or holds illegal values for '%s'", e.ParameterName)
	case KindIntervalTooLarge:
		return fmt.Sprintf("Too large selection interval requested for '%s'", e.ParameterName)
	case KindOrderDuplication:
		return "Trying to create different order with previously used order ID"
	case KindAmountRemainderTooLow:
		return "Not allowed partial refund amount. Partial amount should be reduced or total amount refunded"
	case KindInvalidToken:
		return "OAuth2 wallet authorization invalid"
	case KindIllegalSignature:
		return "Illegal JWS signature"
	case KindSourceNotAllowed:
		return "Source not allowed for this order now"
	case KindMethodNotAllowed:
		return "Method not allowed for this order"
	case KindRecipientNotAllowed:
		return "Transfers to payee not allowed, merchant disabled or blocked"
	case KindInstrumentNotAllowed:
		return "Order not allowed to be paid by this instrument"
	case KindOperationForbidden:
		return "Requested operation forbidden for this order"
	case KindInvalidScope:
		return "OAuth2 authorization scope not enough for requested operation"
	case KindParameterNotAllowed:
		return fmt.Sprintf("Parameter value not allowed for '%s'", e.ParameterName)
	case KindTechnicalError:
		return fmt.Sprintf("Technical Error. Request accepted or rejected, and should be repeated to get "+
			"final status. Retry in %d ms", e.NextRetry.Milliseconds())
	case KindPhoneNumberRefused:
		return "Phone number not allowed for wallet registration"
	case KindApplicationBlocked:
		return "Instance ID or Client ID not allowed for wallet registration"
	case KindAlreadyExists:
		return "Wallet for current account already exists"
	case KindLinkedPhoneRequired:
		return "No phone linked for this account"
	case KindLimitExceeded:
		return "Phone number validation retries limit temporary exceeded"
	case KindAccountBlocked:
		return "User account blocked. To unlock proceed to: " + e.URI
	case KindExtActionRequired:
		return "Requested payment not allowed until action on external page proceeded: " + e.URI
	default:
		return "Undefined error. " + e.Code
	}
}

// Is matches another *APIError of the same Kind, so sentinels work with errors.Is.
func (e *APIError) Is(target error) bool {
	other, ok := target.(*APIError)
	if !ok {
		return false
	}

	return other.Kind == e.Kind
}

// Retryable reports whether the error carries a retry hint.
func (e *APIError) Retryable() bool {
	return e.Kind == KindRequestStateUnknown || e.Kind == KindTechnicalError
}

type wireEntry struct {
	kind  ErrorKind
	param string
}

// wireCodes maps the "error" field of a response body to a variant. Entries
// with a param carry a fixed parameter name; the others read auxiliary fields.
var wireCodes = map[string]wireEntry{
	// Status 200
	"OrderRefused":            {kind: KindOrderRefused},
	"AuthorizationRejected":   {kind: KindAuthorizationRejected},
	"AlreadyAuthorized":       {kind: KindAlreadyAuthorized},
	"InappropriateStatus":     {kind: KindInappropriateStatus},
	"OrderExpired":            {kind: KindOrderExpired},
	"IdentificationRequired":  {kind: KindIdentificationRequired},
	"RecipientAccountClosed":  {kind: KindRecipientAccountClosed},
	"InsufficientFunds":       {kind: KindInsufficientFunds},
	"OperationNotSupported":   {kind: KindOperationNotSupported},
	"PartialRefundNotAllowed": {kind: KindPartialRefundNotAllowed},
	"IllegalParameters":       {kind: KindIllegalParameters},
	"illegal_params":          {kind: KindIllegalParameters},
	"PayerNotFound":           {kind: KindPayerNotFound},

	// Status 202
	"RequestStateUnknown": {kind: KindRequestStateUnknown},

	// Status 400
	"SyntaxError":           {kind: KindSyntaxError},
	"IllegalHeader":         {kind: KindIllegalHeader},
	"IllegalParameter":      {kind: KindIllegalParameter},
	"IntervalTooLarge":      {kind: KindIntervalTooLarge},
	"OrderDuplication":      {kind: KindOrderDuplication},
	"AmountRemainderTooLow": {kind: KindAmountRemainderTooLow},

	// Status 401
	"invalid_token":    {kind: KindInvalidToken},
	"IllegalSignature": {kind: KindIllegalSignature},

	// Status 403
	"SourceNotAllowed":     {kind: KindSourceNotAllowed},
	"MethodNotAllowed":     {kind: KindMethodNotAllowed},
	"RecipientNotAllowed":  {kind: KindRecipientNotAllowed},
	"InstrumentNotAllowed": {kind: KindInstrumentNotAllowed},
	"OperationForbidden":   {kind: KindOperationForbidden},
	"InvalidScope":         {kind: KindInvalidScope},
	"ParameterNotAllowed":  {kind: KindParameterNotAllowed},

	// Status 500
	"TechnicalError":  {kind: KindTechnicalError},
	"technical_error": {kind: KindTechnicalError},

	// OAuth2
	"illegal_param_oauth_token":     {kind: KindIllegalParameter, param: "oauthToken"},
	"illegal_param_request_id":      {kind: KindIllegalParameter, param: "requestId"},
	"illegal_param_phone_number":    {kind: KindIllegalParameter, param: "phoneNumber"},
	"illegal_param_activation_code": {kind: KindIllegalParameter, param: "activationCode"},
	"illegal_param_instance_id":     {kind: KindIllegalParameter, param: "instanceId"},
	"illegal_param_device_id":       {kind: KindIllegalParameter, param: "deviceId"},
	"illegal_param_latitude":        {kind: KindIllegalParameter, param: "latitude"},
	"illegal_param_longitude":       {kind: KindIllegalParameter, param: "longitude"},
	"phone_number_refused":          {kind: KindPhoneNumberRefused},
	"application_blocked":           {kind: KindApplicationBlocked},
	"already_exists":                {kind: KindAlreadyExists},
	"linked_phone_required":         {kind: KindLinkedPhoneRequired},
	"limit_exceeded":                {kind: KindLimitExceeded},

	// History and search
	"illegal_param_till":         {kind: KindIllegalParameter, param: "till"},
	"illegal_param_from":         {kind: KindIllegalParameter, param: "from"},
	"illegal_param_type":         {kind: KindIllegalParameter, param: "type"},
	"illegal_param_label":        {kind: KindIllegalParameter, param: "label"},
	"illegal_param_records":      {kind: KindIllegalParameter, param: "records"},
	"illegal_param_operation_id": {kind: KindIllegalParameter, param: "operation_id"},
	"illegal_param_favorite_id":  {kind: KindIllegalParameter, param: "favorite_id"},
	"illegal_param_index":        {kind: KindIllegalParameter, param: "index"},
	"illegal_param_start_record": {kind: KindIllegalParameter, param: "start_record"},
	"illegal_param_query":        {kind: KindIllegalParameter, param: "query"},

	// Payments API v1
	"illegal_param_to":                   {kind: KindIllegalParameter, param: "to"},
	"illegal_param_amount":               {kind: KindIllegalParameter, param: "amount"},
	"illegal_param_amount_due":           {kind: KindIllegalParameter, param: "amount_due"},
	"illegal_param_comment":              {kind: KindIllegalParameter, param: "comment"},
	"illegal_param_message":              {kind: KindIllegalParameter, param: "message"},
	"illegal_param_expire_period":        {kind: KindIllegalParameter, param: "expire_period"},
	"illegal_param_csc":                  {kind: KindIllegalParameter, param: "csc"},
	"illegal_param_ext_auth_success_uri": {kind: KindIllegalParameter, param: "extAuthSuccessUri"},
	"illegal_param_ext_auth_fail_uri":    {kind: KindIllegalParameter, param: "extAuthFailUri"},
	"illegal_param_money_source_token":   {kind: KindIllegalParameter, param: "moneySourceToken"},
	"illegal_param_client_id":            {kind: KindIllegalParameter, param: "clientId"},
	"contract_not_found":                 {kind: KindIllegalParameter, param: "orderId"},
	"not_enough_funds":                   {kind: KindInsufficientFunds},
	"payment_refused":                    {kind: KindOrderRefused},
	"payee_not_found":                    {kind: KindRecipientAccountClosed},
	"account_closed":                     {kind: KindRecipientAccountClosed},
	"authorization_reject":               {kind: KindAuthorizationRejected},
	"money_source_not_available":         {kind: KindSourceNotAllowed},
	"account_blocked":                    {kind: KindAccountBlocked},
	"ext_action_required":                {kind: KindExtActionRequired},

	// Personification
	"account_already_identified": {kind: KindAccountAlreadyIdentified},
	"personification_refused":    {kind: KindPersonificationRefused},
}

// errorBody is a decoded API error object. Fields are read individually so a
// malformed auxiliary field falls back to its default instead of hiding the
// error code.
type errorBody map[string]jsoniter.RawMessage

func (b errorBody) str(keys ...string) string {
	for _, key := range keys {
		var value string
		if raw, ok := b[key]; ok && json.Unmarshal(raw, &value) == nil && value != "" {
			return value
		}
	}

	return ""
}

func (b errorBody) millis(keys ...string) (time.Duration, bool) {
	for _, key := range keys {
		var value int64
		if raw, ok := b[key]; ok && json.Unmarshal(raw, &value) == nil {
			return time.Duration(value) * time.Millisecond, true
		}
	}

	return 0, false
}

func (b errorBody) nextRetry() time.Duration {
	if retry, ok := b.millis(constants.WireKeyNextRetry, constants.WireKeyNextRetryLegacy); ok {
		return retry
	}

	return constants.DefaultNextRetry
}

// DecodeAPIError decodes an API error from a response body. It reports false
// when the body is not a JSON object with a string "error" field.
// Unrecognised codes decode to KindUnknown carrying the code.
func DecodeAPIError(body []byte) (*APIError, bool) {
	var wire errorBody

	err := json.Unmarshal(body, &wire)
	if err != nil || wire == nil {
		return nil, false
	}

	var code string

	raw, ok := wire[constants.WireKeyError]
	if !ok || json.Unmarshal(raw, &code) != nil {
		return nil, false
	}

	return apiErrorFromWire(code, wire), true
}

func apiErrorFromWire(code string, wire errorBody) *APIError {
	entry, ok := wireCodes[code]
	if !ok {
		return &APIError{Kind: KindUnknown, Code: code}
	}

	apiErr := &APIError{Kind: entry.kind, Code: code}

	switch entry.kind {
	case KindInappropriateStatus:
		apiErr.Status = wire.str(constants.WireKeyStatus)
	case KindRequestStateUnknown, KindTechnicalError:
		apiErr.NextRetry = wire.nextRetry()
	case KindIllegalHeader, KindIllegalParameter, KindIntervalTooLarge, KindParameterNotAllowed:
		apiErr.ParameterName = entry.param
		if apiErr.ParameterName == "" {
			apiErr.ParameterName = wire.str(constants.WireKeyParameterName, constants.WireKeyParameterNameOld)
		}
	case KindAccountBlocked:
		apiErr.URI = wire.str(constants.WireKeyAccountUnblockURI)
	case KindExtActionRequired:
		apiErr.URI = wire.str(constants.WireKeyExtActionURI)
	default:
	}

	return apiErr
}

// IsInvalidToken checks if the error is an authentication failure.
func IsInvalidToken(err error) bool {
	return errors.Is(err, ErrInvalidToken)
}

// IsRetryable checks if the error carries a server retry hint.
func IsRetryable(err error) bool {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr.Retryable()
	}

	return false
}

// RetryAfter returns the server retry hint carried by err.
func RetryAfter(err error) (time.Duration, bool) {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) && apiErr.Retryable() {
		return apiErr.NextRetry, true
	}

	return 0, false
}

// AsAPIError extracts an *APIError from err.
func AsAPIError(err error) (*APIError, bool) {
	apiErr := &APIError{}
	if errors.As(err, &apiErr) {
		return apiErr, true
	}

	return nil, false
}
