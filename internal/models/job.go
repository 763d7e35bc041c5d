package models

// JobGroupTag is the logical stream tag carried inside every job message body.
const JobGroupTag = "ETL_JOB"

// UploadJob correlates one intake or trigger request with the queue message
// it produces. It lives for a single request.
type UploadJob struct {
	OriginalFilename string
	Key              string
	Bucket           string
	DeduplicationID  string
	GroupID          string
}

// Message builds the queue body for the job.
func (j *UploadJob) Message() JobMessage {
	return JobMessage{
		Key:      j.Key,
		Bucket:   j.Bucket,
		GroupTag: JobGroupTag,
	}
}

// JobMessage is the body consumed by the ETL worker. Field names match what
// the existing consumers read.
type JobMessage struct {
	Key      string `json:"s3_key"`
	Bucket   string `json:"bucket_name"`
	GroupTag string `json:"MessageGroupId"`
}

// JobReceipt is returned to the client once the job is queued.
type JobReceipt struct {
	Message   string `json:"message"`
	Key       string `json:"s3_key"`
	MessageID string `json:"sqs_message_id"`
}
