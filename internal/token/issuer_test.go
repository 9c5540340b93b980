package token

import (
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/robobook/internal/model"
)

const testSecret = "test-signing-secret-32-bytes-long!!!"

func testUser() *model.User {
	return &model.User{
		ID:           "550e8400-e29b-41d4-a716-446655440000",
		Email:        "a@x.com",
		Name:         "A",
		TokenVersion: 0,
	}
}

func testProfile() *model.HardwareProfile {
	return &model.HardwareProfile{
		UserID:             "550e8400-e29b-41d4-a716-446655440000",
		GPUType:            model.GPUNone,
		RAMCapacity:        model.RAM8to16,
		CodingLanguages:    []model.CodingLanguage{model.LangPython},
		RoboticsExperience: model.ExperienceNone,
	}
}

// 発行→検証のラウンドトリップでクレームが送信プロフィールと完全一致することを検証
func TestIssuer_IssueValidate_RoundTrip(t *testing.T) {
	issuer, err := NewIssuer(testSecret, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer returned error: %v", err)
	}

	tokenStr, err := issuer.Issue(testUser(), testProfile())
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	claims, apiErr := issuer.Validate(tokenStr)
	if apiErr != nil {
		t.Fatalf("Validate returned error: %v", apiErr)
	}

	if claims.Subject != "550e8400-e29b-41d4-a716-446655440000" {
		t.Errorf("sub = %q", claims.Subject)
	}
	if claims.Email != "a@x.com" {
		t.Errorf("email = %q, want %q", claims.Email, "a@x.com")
	}
	if claims.Name != "A" {
		t.Errorf("name = %q, want %q", claims.Name, "A")
	}
	if claims.GPUType != model.GPUNone {
		t.Errorf("gpu_type = %q, want %q", claims.GPUType, model.GPUNone)
	}
	if claims.RAMCapacity != model.RAM8to16 {
		t.Errorf("ram_capacity = %q, want %q", claims.RAMCapacity, model.RAM8to16)
	}
	if len(claims.CodingLanguages) != 1 || claims.CodingLanguages[0] != model.LangPython {
		t.Errorf("coding_languages = %v, want [Python]", claims.CodingLanguages)
	}
	if claims.RoboticsExperience != model.ExperienceNone {
		t.Errorf("robotics_experience = %q", claims.RoboticsExperience)
	}
	if claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time) != 24*time.Hour {
		t.Errorf("validity window = %v, want 24h", claims.ExpiresAt.Time.Sub(claims.IssuedAt.Time))
	}
}

// トークンサイズがCookie上限（約4KB）を大きく下回ることを検証
func TestIssuer_Issue_TokenSize(t *testing.T) {
	issuer, err := NewIssuer(testSecret, 24*time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer returned error: %v", err)
	}

	profile := testProfile()
	// 語彙内で最長になる組み合わせ
	profile.GPUType = model.GPUAMDRX7000
	profile.RAMCapacity = model.RAM32Plus
	profile.CodingLanguages = model.CodingLanguages
	profile.RoboticsExperience = model.ExperienceProfessional

	tokenStr, err := issuer.Issue(testUser(), profile)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if len(tokenStr) >= 1024 {
		t.Errorf("token length = %d, want < 1024", len(tokenStr))
	}
}

// 期限切れトークンがExpiredTokenで失敗することを検証
func TestIssuer_Validate_Expired(t *testing.T) {
	issuer, err := NewIssuer(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer returned error: %v", err)
	}

	// 発行時刻を2時間前に固定
	issued := time.Now().Add(-2 * time.Hour)
	issuer.now = func() time.Time { return issued }
	tokenStr, err := issuer.Issue(testUser(), testProfile())
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	// 検証は現在時刻で行う
	issuer.now = time.Now
	_, apiErr := issuer.Validate(tokenStr)
	if apiErr == nil {
		t.Fatal("expected error for expired token")
	}
	if apiErr.Code != model.ErrCodeTokenExpired {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeTokenExpired)
	}
}

// 署名部を改変したトークンがInvalidSignatureで失敗することを検証
func TestIssuer_Validate_TamperedSignature(t *testing.T) {
	issuer, err := NewIssuer(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer returned error: %v", err)
	}

	tokenStr, err := issuer.Issue(testUser(), testProfile())
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	// 署名の1文字を反転させる
	parts := strings.Split(tokenStr, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token format: %d parts", len(parts))
	}
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	_, apiErr := issuer.Validate(tampered)
	if apiErr == nil {
		t.Fatal("expected error for tampered signature")
	}
	if apiErr.Code != model.ErrCodeInvalidSignature {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeInvalidSignature)
	}
}

// 異なるシークレットで署名されたトークンが拒否されることを検証
func TestIssuer_Validate_WrongSecret(t *testing.T) {
	issuerA, err := NewIssuer(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer returned error: %v", err)
	}
	issuerB, err := NewIssuer("another-signing-secret-32-bytes!!!!!", time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer returned error: %v", err)
	}

	tokenStr, err := issuerA.Issue(testUser(), testProfile())
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	_, apiErr := issuerB.Validate(tokenStr)
	if apiErr == nil {
		t.Fatal("expected error for token signed with another secret")
	}
	if apiErr.Code != model.ErrCodeInvalidSignature {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeInvalidSignature)
	}
}

// 構造的に壊れたトークンがMalformedで失敗することを検証
func TestIssuer_Validate_Malformed(t *testing.T) {
	issuer, err := NewIssuer(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer returned error: %v", err)
	}

	for _, tok := range []string{"", "not-a-token", "a.b", "a.b.c.d"} {
		_, apiErr := issuer.Validate(tok)
		if apiErr == nil {
			t.Errorf("Validate(%q) should fail", tok)
			continue
		}
		if apiErr.Code != model.ErrCodeTokenMalformed {
			t.Errorf("Validate(%q) code = %q, want %q", tok, apiErr.Code, model.ErrCodeTokenMalformed)
		}
	}
}

// 32バイト未満のシークレットが拒否されることを検証
func TestNewIssuer_ShortSecret(t *testing.T) {
	if _, err := NewIssuer("short", time.Hour); err == nil {
		t.Fatal("expected error for short secret")
	}
}
