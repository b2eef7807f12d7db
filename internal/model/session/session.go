package session

import "time"

// Session captures one live interview connection. It is owned by the registry;
// only the connection's own handlers and the disconnect path mutate it.
type Session struct {
	ConnID    string
	UserID    string
	ThreadID  string
	AgentID   string
	CreatedAt time.Time

	Recording RecordingMeta
}

// RecordingMeta accumulates bookkeeping for the interviewee recording that is
// flushed to object storage when the connection closes.
type RecordingMeta struct {
	ThreadID        string          `json:"thread_id"`
	ConnID          string          `json:"ws_conn_sid"`
	ConnStartedAt   int64           `json:"ws_conn_started"`
	ConnFinishedAt  int64           `json:"ws_conn_finished,omitempty"`
	RecordingID     string          `json:"recording_id,omitempty"`
	AudioStarted    bool            `json:"audio_started"`
	AudioStartedAt  int64           `json:"audio_started_at,omitempty"`
	Fragments       []FragmentStamp `json:"audio_timestamps"`
	PauseIntervals  [][2]int64      `json:"audio_pause_timestamps"`
	UserMessageIDs  map[string]string `json:"user_msg_timestamps"`
	lastAudioAt     int64
}

// FragmentStamp records one transcription fragment with its timing, kept so
// the recording can later be aligned with the transcript.
type FragmentStamp struct {
	Text        string  `json:"text"`
	IsFinal     bool    `json:"is_final"`
	SpeechFinal bool    `json:"speech_final"`
	Start       float64 `json:"start"`
	Duration    float64 `json:"duration"`
	Timestamp   int64   `json:"timestamp"`
}

// pauseGapMillis is the silence gap between audio packets that counts as a pause.
const pauseGapMillis = 1500

// MarkAudio notes an incoming audio packet at the given unix-millisecond time,
// recording the start of capture and any pause interval longer than the gap.
func (m *RecordingMeta) MarkAudio(now int64) {
	if !m.AudioStarted {
		m.AudioStarted = true
		m.AudioStartedAt = now
	}
	if m.lastAudioAt != 0 && now-m.lastAudioAt > pauseGapMillis {
		m.PauseIntervals = append(m.PauseIntervals, [2]int64{m.lastAudioAt, now})
	}
	m.lastAudioAt = now
}

// RecordUserMessage maps an outbound human-turn timestamp to its derived
// message id (threadID prefix + timestamp).
func (m *RecordingMeta) RecordUserMessage(timestamp, messageID string) {
	if m.UserMessageIDs == nil {
		m.UserMessageIDs = make(map[string]string)
	}
	m.UserMessageIDs[timestamp] = messageID
}
