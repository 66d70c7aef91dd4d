package pragmatic

import (
	"crypto/md5"
	"encoding/hex"
	"testing"
)

func TestSign(t *testing.T) {
	// 已知向量：按键名排序拼接 k=v&...，末尾直接拼密钥（无分隔符），MD5 小写十六进制
	params := map[string]string{
		"secureLogin": "abc",
		"symbol":      "g1",
		"currency":    "EUR",
	}
	got := Sign(params, "s3cr3t")

	sum := md5.Sum([]byte("currency=EUR&secureLogin=abc&symbol=g1s3cr3t"))
	want := hex.EncodeToString(sum[:])
	if got != want {
		t.Fatalf("Sign = %s, want %s", got, want)
	}
}

func TestSignOrderIndependent(t *testing.T) {
	a := Sign(map[string]string{"b": "2", "a": "1", "c": "3"}, "k")
	b := Sign(map[string]string{"c": "3", "a": "1", "b": "2"}, "k")
	if a != b {
		t.Fatal("signature must not depend on map iteration order")
	}
}

func TestVerify(t *testing.T) {
	params := map[string]string{"token": "t1", "amount": "1.50"}
	hash := Sign(params, "secret")

	if !Verify(params, "secret", hash) {
		t.Fatal("valid signature must verify")
	}
	// 大写十六进制同样接受
	upper := ""
	for _, ch := range hash {
		if ch >= 'a' && ch <= 'f' {
			upper += string(ch - 32)
		} else {
			upper += string(ch)
		}
	}
	if !Verify(params, "secret", upper) {
		t.Fatal("uppercase hex must verify")
	}
	if Verify(params, "wrong-secret", hash) {
		t.Fatal("wrong secret must fail")
	}
	params["amount"] = "2.00"
	if Verify(params, "secret", hash) {
		t.Fatal("tampered params must fail")
	}
}
