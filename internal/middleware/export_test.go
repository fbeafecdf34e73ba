package middleware

var EncodePayload = encodePayload
