// Package sesevent defines the subset of the SES receipt event consumed
// by the email receiver.
package sesevent

// Event is the trigger payload delivered to the receiver Lambda. SES
// invokes the function with one or more records; only the first one is
// ever acted on.
type Event struct {
	Records []Record `json:"Records"`
}

// Record is a single entry in the trigger event.
type Record struct {
	EventSource string   `json:"eventSource"`
	SES         *Receipt `json:"ses"`
}

// Receipt carries the mail metadata and the receipt action for one
// delivered message.
type Receipt struct {
	Mail   Mail   `json:"mail"`
	Action Action `json:"receipt"`
}

// Mail is the SES-level metadata about the delivered message.
type Mail struct {
	Timestamp   string   `json:"timestamp"`
	Source      string   `json:"source"`
	MessageID   string   `json:"messageId"`
	Destination []string `json:"destination"`
}

// Action describes what SES did with the message. For the S3 rule this
// carries the bucket and object key of the stored raw MIME.
type Action struct {
	Recipients []string     `json:"recipients"`
	Detail     ActionDetail `json:"action"`
}

// ActionDetail is the receipt rule action, including the S3 location of
// the raw object.
type ActionDetail struct {
	Type       string `json:"type"`
	BucketName string `json:"bucketName"`
	ObjectKey  string `json:"objectKey"`
}

// FirstObjectRef returns the raw-object location from the first mail
// record. ok is false when the event carries no mail record or the
// record has no bucket/key; callers treat that as a no-op, not an error.
func (e Event) FirstObjectRef() (bucket, key string, ok bool) {
	if len(e.Records) == 0 {
		return "", "", false
	}
	rec := e.Records[0]
	if rec.SES == nil {
		return "", "", false
	}
	detail := rec.SES.Action.Detail
	if detail.BucketName == "" || detail.ObjectKey == "" {
		return "", "", false
	}
	return detail.BucketName, detail.ObjectKey, true
}
