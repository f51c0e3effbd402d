package sesevent

import (
	"encoding/json"
	"testing"
)

func TestFirstObjectRef_EmptyEvent(t *testing.T) {
	_, _, ok := Event{}.FirstObjectRef()
	if ok {
		t.Error("ok = true, want false for empty event")
	}
}

func TestFirstObjectRef_RecordWithoutSES(t *testing.T) {
	event := Event{Records: []Record{{EventSource: "aws:sns"}}}
	_, _, ok := event.FirstObjectRef()
	if ok {
		t.Error("ok = true, want false for record without ses field")
	}
}

func TestFirstObjectRef_MissingBucketOrKey(t *testing.T) {
	tests := []struct {
		name   string
		bucket string
		key    string
	}{
		{"no bucket", "", "inbound/msg1.eml"},
		{"no key", "raw-emails", ""},
		{"neither", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := Event{Records: []Record{{
				EventSource: "aws:ses",
				SES: &Receipt{Action: Action{Detail: ActionDetail{
					Type:       "S3",
					BucketName: tt.bucket,
					ObjectKey:  tt.key,
				}}},
			}}}
			_, _, ok := event.FirstObjectRef()
			if ok {
				t.Error("ok = true, want false")
			}
		})
	}
}

func TestFirstObjectRef_UsesFirstRecordOnly(t *testing.T) {
	event := Event{Records: []Record{
		{
			EventSource: "aws:ses",
			SES: &Receipt{Action: Action{Detail: ActionDetail{
				Type: "S3", BucketName: "raw-emails", ObjectKey: "inbound/first.eml",
			}}},
		},
		{
			EventSource: "aws:ses",
			SES: &Receipt{Action: Action{Detail: ActionDetail{
				Type: "S3", BucketName: "other-bucket", ObjectKey: "inbound/second.eml",
			}}},
		},
	}}

	bucket, key, ok := event.FirstObjectRef()
	if !ok {
		t.Fatal("ok = false, want true")
	}
	if bucket != "raw-emails" {
		t.Errorf("bucket = %q, want %q", bucket, "raw-emails")
	}
	if key != "inbound/first.eml" {
		t.Errorf("key = %q, want %q", key, "inbound/first.eml")
	}
}

func TestEvent_DecodesSESReceiptJSON(t *testing.T) {
	raw := `{
		"Records": [{
			"eventSource": "aws:ses",
			"ses": {
				"mail": {
					"timestamp": "2025-11-03T10:15:00.000Z",
					"source": "sender@example.com",
					"messageId": "ses-msg-id-1",
					"destination": ["u_acme@in.chiphi.ai"]
				},
				"receipt": {
					"recipients": ["u_acme@in.chiphi.ai"],
					"action": {
						"type": "S3",
						"bucketName": "raw-emails",
						"objectKey": "inbound/msg1.eml"
					}
				}
			}
		}]
	}`

	var event Event
	if err := json.Unmarshal([]byte(raw), &event); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	bucket, key, ok := event.FirstObjectRef()
	if !ok {
		t.Fatal("ok = false, want true")
	}
	if bucket != "raw-emails" || key != "inbound/msg1.eml" {
		t.Errorf("ref = %q/%q, want raw-emails/inbound/msg1.eml", bucket, key)
	}
	if event.Records[0].SES.Mail.MessageID != "ses-msg-id-1" {
		t.Errorf("mail.messageId = %q, want ses-msg-id-1", event.Records[0].SES.Mail.MessageID)
	}
}
