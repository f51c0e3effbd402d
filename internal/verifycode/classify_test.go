package verifycode

import "testing"

func TestClassify_OrdinaryReceiptIsTransactional(t *testing.T) {
	// Long digit runs in a receipt must not trigger the verification path.
	got := Classify("Your Amazon.com order #123-456", "Order total: 1234567 points")
	if got.Kind != KindTransactional {
		t.Errorf("Kind = %v, want KindTransactional", got.Kind)
	}
	if got.Code != "" {
		t.Errorf("Code = %q, want empty", got.Code)
	}
}

func TestClassify_SubjectVariants(t *testing.T) {
	subjects := []string{
		"Gmail Forwarding Confirmation",
		"(#482913) Gmail Forwarding Confirmation - Receive Mail from someone@gmail.com",
		"Please confirm your email forwarding",
		"Forwarding request: please confirm",
		"Verify your forwarding address",
		"Email Forwarding Request",
	}
	for _, subject := range subjects {
		got := Classify(subject, "Your confirmation code is 482913")
		if got.Kind != KindVerification {
			t.Errorf("Classify(%q) Kind = %v, want KindVerification", subject, got.Kind)
		}
	}
}

func TestClassify_BodyPatternOrder(t *testing.T) {
	const subject = "Gmail Forwarding Confirmation"

	tests := []struct {
		name        string
		body        string
		wantCode    string
		wantPattern string
	}{
		{
			name:        "label before digits",
			body:        "Your confirmation code is 482913. It expires soon.",
			wantCode:    "482913",
			wantPattern: "label-before",
		},
		{
			name:        "verification label before digits",
			body:        "verification: 7654321",
			wantCode:    "7654321",
			wantPattern: "label-before",
		},
		{
			name:        "label after digits",
			body:        "482913 is your Gmail forwarding number",
			wantCode:    "482913",
			wantPattern: "label-after",
		},
		{
			name:        "bare digits fallback",
			body:        "Enter 482913 to complete setup.",
			wantCode:    "482913",
			wantPattern: "bare-digits",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(subject, tt.body)
			if got.Kind != KindVerification {
				t.Fatalf("Kind = %v, want KindVerification", got.Kind)
			}
			if got.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Pattern != tt.wantPattern {
				t.Errorf("Pattern = %q, want %q", got.Pattern, tt.wantPattern)
			}
		})
	}
}

func TestClassify_ConfirmationWithoutCodeIsUnclassifiable(t *testing.T) {
	got := Classify("Gmail Forwarding Confirmation", "Click the link below to confirm.")
	if got.Kind != KindUnclassifiable {
		t.Errorf("Kind = %v, want KindUnclassifiable", got.Kind)
	}
	if got.Code != "" {
		t.Errorf("Code = %q, want empty", got.Code)
	}
}

func TestClassify_IgnoresShortAndLongDigitRuns(t *testing.T) {
	// 5 digits is too short, 12 digits too long.
	tests := []string{
		"Your code is 12345",
		"Reference: 123456789012",
	}
	for _, body := range tests {
		got := Classify("Gmail Forwarding Confirmation", body)
		if got.Kind != KindUnclassifiable {
			t.Errorf("Classify(body=%q) Kind = %v, want KindUnclassifiable", body, got.Kind)
		}
	}
}

func TestClassify_SevenDigitCode(t *testing.T) {
	got := Classify("Gmail Forwarding Confirmation", "Your confirmation code is 4829137")
	if got.Kind != KindVerification || got.Code != "4829137" {
		t.Errorf("got %+v, want verification with code 4829137", got)
	}
}
