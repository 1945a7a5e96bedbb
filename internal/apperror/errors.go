package apperror

// ErrCode is a typed error code enum for consistent error identification
// across the session engine, the shell API and the terminal runner.
type ErrCode string

const (
	// ─── Bootstrap ─────────────────────────────────────────────────────
	ErrExamNotFound    ErrCode = "EXAM_NOT_FOUND"
	ErrNoQuestions     ErrCode = "NO_QUESTIONS"
	ErrInvalidDuration ErrCode = "INVALID_DURATION"
	ErrUnauthenticated ErrCode = "UNAUTHENTICATED"
	ErrNetwork         ErrCode = "NETWORK_ERROR"

	// ─── Submission ────────────────────────────────────────────────────
	ErrSubmitFailed       ErrCode = "SUBMIT_FAILED"
	ErrSubmitFailedTimeUp ErrCode = "SUBMIT_FAILED_TIME_UP"
	ErrSubmitConflict     ErrCode = "SUBMIT_CONFLICT"
	ErrSubmitInFlight     ErrCode = "SUBMIT_IN_FLIGHT"
	ErrNotInProgress      ErrCode = "NOT_IN_PROGRESS"

	// ─── Review ────────────────────────────────────────────────────────
	ErrResultNotFound ErrCode = "RESULT_NOT_FOUND"

	// ─── Shell ─────────────────────────────────────────────────────────
	ErrValidation      ErrCode = "VALIDATION_ERROR"
	ErrInvalidID       ErrCode = "INVALID_ID"
	ErrAttemptNotFound ErrCode = "ATTEMPT_NOT_FOUND"
	ErrRateLimited     ErrCode = "RATE_LIMITED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Bootstrap ─────────────────────────────────────────────────────
	case ErrExamNotFound:
		return "Ujian tidak ditemukan."
	case ErrNoQuestions:
		return "Ujian ini tidak memiliki pertanyaan."
	case ErrInvalidDuration:
		return "Durasi ujian tidak valid."
	case ErrUnauthenticated:
		return "Sesi Anda telah berakhir. Silakan login kembali."
	case ErrNetwork:
		return "Gagal terhubung ke server. Silakan buka ujian kembali."

	// ─── Submission ────────────────────────────────────────────────────
	case ErrSubmitFailed:
		return "Gagal mengirim jawaban. Jawaban Anda masih tersimpan, silakan coba lagi."
	case ErrSubmitFailedTimeUp:
		return "Waktu habis dan jawaban gagal dikirim. Silakan coba kirim ulang."
	case ErrSubmitConflict:
		return "Ujian ini sudah dikirim sebelumnya, tetapi hasilnya tidak dapat dimuat."
	case ErrSubmitInFlight:
		return "Jawaban sedang dikirim."
	case ErrNotInProgress:
		return "Ujian tidak sedang berlangsung."

	// ─── Review ────────────────────────────────────────────────────────
	case ErrResultNotFound:
		return "Hasil ujian tidak ditemukan."

	// ─── Shell ─────────────────────────────────────────────────────────
	case ErrValidation:
		return "Validasi gagal. Silakan periksa masukan Anda."
	case ErrInvalidID:
		return "Format ID tidak valid."
	case ErrAttemptNotFound:
		return "Sesi ujian tidak ditemukan."
	case ErrRateLimited:
		return "Terlalu banyak permintaan. Silakan tunggu sebentar."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Terjadi kesalahan internal."
	default:
		return "Terjadi kesalahan yang tidak terduga."
	}
}

// Error is a user-facing failure attached to a session snapshot.
type Error struct {
	Code      ErrCode `json:"code"`
	Message   string  `json:"message"`
	Retryable bool    `json:"retryable"`
}

// New builds an Error with the catalogue message for code.
func New(code ErrCode, retryable bool) *Error {
	return &Error{Code: code, Message: GetMessage(code), Retryable: retryable}
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}
