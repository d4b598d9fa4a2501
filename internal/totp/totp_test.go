package totp

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp"
	pqtotp "github.com/pquerna/otp/totp"
)

var (
	rfcSHA1   = []byte("12345678901234567890")
	rfcSHA256 = []byte("12345678901234567890123456789012")
	rfcSHA512 = []byte("1234567890123456789012345678901234567890123456789012345678901234")
	// JBSWY3DPEHPK3PXP
	helloSecret = []byte("Hello!\xde\xad\xbe\xef")
)

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	if p.Period != 30 {
		t.Errorf("Period = %d, want 30", p.Period)
	}
	if p.Digits != otp.DigitsSix {
		t.Errorf("Digits = %v, want DigitsSix", p.Digits)
	}
	if p.Algorithm != otp.AlgorithmSHA1 {
		t.Errorf("Algorithm = %v, want SHA1", p.Algorithm)
	}
	if err := p.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestParamsValidate(t *testing.T) {
	bad := []Params{
		{Algorithm: otp.AlgorithmSHA1, Digits: otp.DigitsSix, Period: 0},
		{Algorithm: otp.AlgorithmSHA1, Digits: 4, Period: 30},
		{Algorithm: otp.AlgorithmSHA1, Digits: 11, Period: 30},
		{Algorithm: otp.AlgorithmMD5, Digits: otp.DigitsSix, Period: 30},
	}
	for _, p := range bad {
		if err := p.Validate(); !errors.Is(err, ErrInvalidParams) {
			t.Errorf("Validate(%+v) = %v, want ErrInvalidParams", p, err)
		}
	}
}

func TestGenerate_RFC6238(t *testing.T) {
	vectors := []struct {
		unix                 int64
		sha1, sha256, sha512 string
	}{
		{59, "94287082", "46119246", "90693936"},
		{1111111109, "07081804", "68084774", "25091201"},
		{1111111111, "14050471", "67062674", "99943326"},
		{1234567890, "89005924", "91819424", "93441116"},
		{2000000000, "69279037", "90698825", "38618901"},
		{20000000000, "65353130", "77737706", "47863826"},
	}
	for _, v := range vectors {
		at := time.Unix(v.unix, 0)
		for _, c := range []struct {
			algo   otp.Algorithm
			secret []byte
			want   string
		}{
			{otp.AlgorithmSHA1, rfcSHA1, v.sha1},
			{otp.AlgorithmSHA256, rfcSHA256, v.sha256},
			{otp.AlgorithmSHA512, rfcSHA512, v.sha512},
		} {
			p := Params{Algorithm: c.algo, Digits: otp.DigitsEight, Period: 30}
			got, err := Generate(c.secret, at, p)
			if err != nil {
				t.Fatalf("Generate(%d, %v): %v", v.unix, c.algo, err)
			}
			if got != c.want {
				t.Errorf("Generate(%d, %v) = %s, want %s", v.unix, c.algo, got, c.want)
			}
		}
	}
}

func TestHOTP_RFC4226(t *testing.T) {
	want := []string{"755224", "287082", "359152", "969429", "338314", "254676", "287922", "162583", "399871", "520489"}
	p := DefaultParams()
	for i, w := range want {
		got, err := HOTP(rfcSHA1, uint64(i), p)
		if err != nil {
			t.Fatalf("HOTP(%d): %v", i, err)
		}
		if got != w {
			t.Errorf("HOTP(%d) = %s, want %s", i, got, w)
		}
	}
}

func TestHOTP_TenDigits(t *testing.T) {
	got, err := HOTP(rfcSHA1, 1, Params{Algorithm: otp.AlgorithmSHA1, Digits: 10, Period: 30})
	if err != nil {
		t.Fatalf("HOTP: %v", err)
	}
	if got != "1094287082" {
		t.Errorf("HOTP = %s, want 1094287082", got)
	}
}

func TestGenerate_KnownSeed(t *testing.T) {
	p := DefaultParams()
	cases := map[int64]string{0: "282760", 59: "996554", 1111111109: "071271"}
	for unix, want := range cases {
		got, err := Generate(helloSecret, time.Unix(unix, 0), p)
		if err != nil {
			t.Fatalf("Generate(%d): %v", unix, err)
		}
		if got != want {
			t.Errorf("Generate(%d) = %s, want %s", unix, got, want)
		}
	}
}

func TestGenerate_MatchesPquerna(t *testing.T) {
	p := DefaultParams()
	for _, unix := range []int64{1, 30, 1700000000, 1760000017} {
		at := time.Unix(unix, 0)
		want, err := pqtotp.GenerateCodeCustom("JBSWY3DPEHPK3PXP", at, pqtotp.ValidateOpts{
			Period: p.Period, Digits: p.Digits, Algorithm: p.Algorithm,
		})
		if err != nil {
			t.Fatalf("pquerna: %v", err)
		}
		got, err := Generate(helloSecret, at, p)
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if got != want {
			t.Errorf("Generate(%d) = %s, pquerna = %s", unix, got, want)
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	at := time.Unix(1234567890, 0)
	p := DefaultParams()
	first, _ := Generate(helloSecret, at, p)
	for i := 0; i < 5; i++ {
		got, _ := Generate(helloSecret, at, p)
		if got != first {
			t.Fatalf("call %d = %s, want %s", i, got, first)
		}
	}
}

func TestGenerate_Width(t *testing.T) {
	for _, digits := range []otp.Digits{otp.DigitsSix, 7, otp.DigitsEight} {
		p := Params{Algorithm: otp.AlgorithmSHA1, Digits: digits, Period: 30}
		for unix := int64(0); unix < 3000; unix += 30 {
			code, err := Generate(helloSecret, time.Unix(unix, 0), p)
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if len(code) != int(digits) {
				t.Fatalf("len(%q) = %d, want %d", code, len(code), digits)
			}
			if strings.Trim(code, "0123456789") != "" {
				t.Fatalf("code %q is not decimal", code)
			}
		}
	}
}

func TestGenerate_ZeroTimeUsesNow(t *testing.T) {
	p := DefaultParams()
	before := time.Now()
	got, err := Generate(helloSecret, time.Time{}, p)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	after := time.Now()
	a, _ := Generate(helloSecret, before, p)
	b, _ := Generate(helloSecret, after, p)
	if got != a && got != b {
		t.Errorf("Generate(zero) = %s, want %s or %s", got, a, b)
	}
}

func TestGenerate_Errors(t *testing.T) {
	if _, err := Generate(nil, time.Unix(0, 0), DefaultParams()); !errors.Is(err, ErrInvalidSecret) {
		t.Errorf("empty secret err = %v, want ErrInvalidSecret", err)
	}
	p := DefaultParams()
	p.Period = 0
	if _, err := Generate(helloSecret, time.Unix(0, 0), p); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("zero period err = %v, want ErrInvalidParams", err)
	}
}

func TestVerify(t *testing.T) {
	p := DefaultParams()
	at := time.Unix(1700000000, 0)
	code, err := Generate(helloSecret, at, p)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if ok, err := Verify(code, helloSecret, at, p, 0); err != nil || !ok {
		t.Errorf("Verify(same step, window 0) = %v, %v; want true", ok, err)
	}
	later := at.Add(time.Duration(p.Period) * time.Second)
	if ok, _ := Verify(code, helloSecret, later, p, 1); !ok {
		t.Error("Verify(+1 step, window 1) = false, want true")
	}
	if ok, _ := Verify(code, helloSecret, later, p, 0); ok {
		t.Error("Verify(+1 step, window 0) = true, want false")
	}
	earlier := at.Add(-time.Duration(p.Period) * time.Second)
	if ok, _ := Verify(code, helloSecret, earlier, p, 1); !ok {
		t.Error("Verify(-1 step, window 1) = false, want true")
	}
	twoLater := at.Add(2 * time.Duration(p.Period) * time.Second)
	if ok, _ := Verify(code, helloSecret, twoLater, p, 1); ok {
		t.Error("Verify(+2 steps, window 1) = true, want false")
	}
}

func TestVerify_StringCompare(t *testing.T) {
	p := DefaultParams()
	// 071271 at t=1111111109; dropping the leading zero must not match.
	at := time.Unix(1111111109, 0)
	if ok, _ := Verify("071271", helloSecret, at, p, 0); !ok {
		t.Error("Verify(071271) = false, want true")
	}
	if ok, _ := Verify("71271", helloSecret, at, p, 0); ok {
		t.Error("Verify(71271) = true, want false")
	}
}

func TestVerify_NearEpoch(t *testing.T) {
	p := DefaultParams()
	if ok, err := Verify("282760", helloSecret, time.Unix(0, 0), p, 2); err != nil || !ok {
		t.Errorf("Verify at epoch = %v, %v; want true", ok, err)
	}
}

func TestVerify_Errors(t *testing.T) {
	if _, err := Verify("123456", nil, time.Unix(0, 0), DefaultParams(), 1); !errors.Is(err, ErrInvalidSecret) {
		t.Errorf("err = %v, want ErrInvalidSecret", err)
	}
}

func TestMatchStep(t *testing.T) {
	p := DefaultParams()
	at := time.Unix(1700000000, 0)
	prev, _ := Generate(helloSecret, at.Add(-30*time.Second), p)
	step, ok, err := MatchStep(prev, helloSecret, at, p, 1)
	if err != nil || !ok {
		t.Fatalf("MatchStep = %v, %v", ok, err)
	}
	if want := TimeStep(at, p.Period) - 1; step != want {
		t.Errorf("step = %d, want %d", step, want)
	}
}

func TestGenerate_BeforeEpoch(t *testing.T) {
	p := DefaultParams()
	at := time.Unix(-100, 0)
	if code, err := Generate(helloSecret, at, p); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("Generate(-100) = %q, %v; want ErrInvalidParams", code, err)
	}
	// Every code Generate returns verifies at the same instant with no drift.
	for _, unix := range []int64{0, 29, 30, 59, 1111111109} {
		at := time.Unix(unix, 0)
		code, err := Generate(helloSecret, at, p)
		if err != nil {
			t.Fatalf("Generate(%d): %v", unix, err)
		}
		if ok, err := Verify(code, helloSecret, at, p, 0); err != nil || !ok {
			t.Errorf("Verify(Generate(%d)) = %v, %v", unix, ok, err)
		}
	}
	// Before the epoch there is no step to match.
	if ok, err := Verify("061539", helloSecret, at, p, 0); err != nil || ok {
		t.Errorf("Verify before epoch = %v, %v; want false", ok, err)
	}
}

func TestMatchStep_WindowLimit(t *testing.T) {
	p := DefaultParams()
	at := time.Unix(1700000000, 0)
	for _, window := range []uint{MaxWindow + 1, 1 << 40, ^uint(0)} {
		done := make(chan error, 1)
		go func() {
			_, _, err := MatchStep("000000", helloSecret, at, p, window)
			done <- err
		}()
		select {
		case err := <-done:
			if !errors.Is(err, ErrInvalidParams) {
				t.Errorf("window %d: err = %v, want ErrInvalidParams", window, err)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("window %d: MatchStep did not return", window)
		}
	}

	code, _ := Generate(helloSecret, at.Add(-time.Duration(MaxWindow)*30*time.Second), p)
	step, ok, err := MatchStep(code, helloSecret, at, p, MaxWindow)
	if err != nil || !ok || step != TimeStep(at, p.Period)-MaxWindow {
		t.Errorf("MatchStep at MaxWindow = %d, %v, %v", step, ok, err)
	}
}

func TestMatchStep_BoundsDoNotOverflow(t *testing.T) {
	p := Params{Algorithm: DefaultParams().Algorithm, Digits: DefaultParams().Digits, Period: 1}
	at := time.Unix(math.MaxInt64, 0)
	if _, _, err := MatchStep("000000", helloSecret, at, p, 3); err != nil {
		t.Errorf("MatchStep at max time: %v", err)
	}
}

func TestTimeStep(t *testing.T) {
	if got := TimeStep(time.Unix(0, 0), 30); got != 0 {
		t.Errorf("TimeStep(epoch, 30) = %d, want 0", got)
	}
	if got := TimeStep(time.Unix(90, 0), 30); got != 3 {
		t.Errorf("TimeStep(90s, 30) = %d, want 3", got)
	}
	if got := TimeStep(time.Unix(59, 0), 30); got != 1 {
		t.Errorf("TimeStep(59s, 30) = %d, want 1", got)
	}
	if got := TimeStep(time.Unix(-1, 0), 30); got != -1 {
		t.Errorf("TimeStep(-1s, 30) = %d, want -1", got)
	}
}

func TestRemaining(t *testing.T) {
	cases := map[int64]int{0: 30, 1: 29, 29: 1, 30: 30, 59: 1}
	for unix, want := range cases {
		if got := Remaining(time.Unix(unix, 0), 30); got != want {
			t.Errorf("Remaining(%d) = %d, want %d", unix, got, want)
		}
	}
}

func TestParseAlgorithm(t *testing.T) {
	cases := map[string]otp.Algorithm{"SHA1": otp.AlgorithmSHA1, "sha256": otp.AlgorithmSHA256, " SHA512 ": otp.AlgorithmSHA512}
	for in, want := range cases {
		got, err := ParseAlgorithm(in)
		if err != nil || got != want {
			t.Errorf("ParseAlgorithm(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseAlgorithm("MD5"); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("ParseAlgorithm(MD5) err = %v, want ErrInvalidParams", err)
	}
}

func TestDigitsFromInt(t *testing.T) {
	if got := DigitsFromInt(8); got != otp.DigitsEight {
		t.Errorf("DigitsFromInt(8) = %v, want DigitsEight", got)
	}
	if got := DigitsFromInt(7); int(got) != 7 {
		t.Errorf("DigitsFromInt(7) = %v, want 7", got)
	}
}

func TestNewSecret(t *testing.T) {
	s, err := NewSecret("Acme", "user@example.com", DefaultParams())
	if err != nil {
		t.Fatalf("NewSecret: %v", err)
	}
	if len(s) < 16 {
		t.Errorf("secret too short: %q", s)
	}
	s2, _ := NewSecret("Acme", "user@example.com", DefaultParams())
	if s == s2 {
		t.Error("NewSecret should produce unique secrets")
	}
}
