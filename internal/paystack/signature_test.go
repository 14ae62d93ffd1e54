package paystack

import "testing"

func TestValidSignatureAcceptsCorrectDigest(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"event":"charge.success","data":{"reference":"ref-1"}}`)
	if !ValidSignature(secret, body, Sign(secret, body)) {
		t.Fatal("correct digest rejected")
	}
}

func TestValidSignatureRejectsTamperedBody(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"event":"charge.success","data":{"reference":"ref-1"}}`)
	signature := Sign(secret, body)

	tampered := make([]byte, len(body))
	copy(tampered, body)
	tampered[len(tampered)-2] ^= 0x01
	if ValidSignature(secret, tampered, signature) {
		t.Fatal("single-byte mutation accepted")
	}
}

func TestValidSignatureRejectsWrongSecret(t *testing.T) {
	body := []byte(`{"event":"charge.success"}`)
	signature := Sign("whsec_a", body)
	if ValidSignature("whsec_b", body, signature) {
		t.Fatal("digest under a different secret accepted")
	}
}

func TestValidSignatureFailsClosed(t *testing.T) {
	body := []byte(`{"event":"charge.success"}`)
	if ValidSignature("", body, Sign("whsec_test", body)) {
		t.Fatal("empty secret must fail closed")
	}
	if ValidSignature("whsec_test", body, "") {
		t.Fatal("empty signature must fail closed")
	}
}

func TestValidSignatureIsWhitespaceSensitive(t *testing.T) {
	secret := "whsec_test"
	body := []byte(`{"event":"charge.success","data":{"reference":"ref-1"}}`)
	reserialized := []byte(`{"event": "charge.success", "data": {"reference": "ref-1"}}`)
	if ValidSignature(secret, reserialized, Sign(secret, body)) {
		t.Fatal("reserialized body must not verify against the original digest")
	}
}
