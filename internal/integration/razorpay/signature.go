package razorpay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureVerifier проверяет подпись подтверждения платежа по подписке.
// Подпись: hex(HMAC_SHA256(secret, paymentID + "|" + subscriptionID)) в нижнем регистре.
type SignatureVerifier struct {
	secret []byte
}

// NewSignatureVerifier создает верификатор с общим секретом шлюза
func NewSignatureVerifier(secret string) *SignatureVerifier {
	return &SignatureVerifier{secret: []byte(secret)}
}

// Sign вычисляет ожидаемую подпись
func (v *SignatureVerifier) Sign(paymentID, subscriptionID string) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write([]byte(paymentID + "|" + subscriptionID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify сравнивает подпись за постоянное время.
// subscriptionID всегда берется из хранилища, а не из запроса клиента.
func (v *SignatureVerifier) Verify(paymentID, subscriptionID, signature string) bool {
	expected := v.Sign(paymentID, subscriptionID)
	return hmac.Equal([]byte(expected), []byte(signature))
}
