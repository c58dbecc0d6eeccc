package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"
	ErrInvalidOption  ErrCode = "INVALID_OPTION"
	ErrEmptyAnswers   ErrCode = "EMPTY_ANSWERS"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound          ErrCode = "NOT_FOUND"
	ErrQuestionNotFound  ErrCode = "QUESTION_NOT_FOUND"
	ErrInvalidNavigation ErrCode = "INVALID_NAVIGATION"

	// ─── Session lifecycle ─────────────────────────────────────────────
	ErrSessionNotStarted    ErrCode = "SESSION_NOT_STARTED"
	ErrSessionClosed        ErrCode = "SESSION_ALREADY_SUBMITTED"
	ErrSubmissionInProgress ErrCode = "SUBMISSION_IN_PROGRESS"

	// ─── Exam service ──────────────────────────────────────────────────
	ErrExamNotFound     ErrCode = "EXAM_NOT_FOUND"
	ErrExamUnauthorized ErrCode = "EXAM_UNAUTHORIZED"
	ErrCatalogLoad      ErrCode = "CATALOG_LOAD_FAILED"
	ErrSubmissionFailed ErrCode = "SUBMISSION_FAILED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validasi gagal. Silakan periksa masukan Anda."
	case ErrInvalidPayload:
		return "Payload permintaan tidak valid."
	case ErrInvalidOption:
		return "Pilihan jawaban tidak tersedia untuk soal ini."
	case ErrEmptyAnswers:
		return "Belum ada jawaban yang dapat dikirim."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Sumber daya tidak ditemukan."
	case ErrQuestionNotFound:
		return "Soal tidak ditemukan dalam ujian ini."
	case ErrInvalidNavigation:
		return "Bagian atau soal tujuan tidak ditemukan."

	// ─── Session lifecycle ─────────────────────────────────────────────
	case ErrSessionNotStarted:
		return "Sesi ujian belum dimulai."
	case ErrSessionClosed:
		return "Ujian ini sudah dikumpulkan."
	case ErrSubmissionInProgress:
		return "Pengumpulan jawaban sedang diproses."

	// ─── Exam service ──────────────────────────────────────────────────
	case ErrExamNotFound:
		return "Ujian tidak ditemukan."
	case ErrExamUnauthorized:
		return "Token autentikasi tidak valid atau telah kedaluwarsa."
	case ErrCatalogLoad:
		return "Gagal memuat soal ujian. Silakan coba lagi."
	case ErrSubmissionFailed:
		return "Gagal mengumpulkan jawaban. Jawaban Anda tetap tersimpan, silakan coba lagi."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Terlalu banyak permintaan. Silakan coba lagi nanti."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Terjadi kesalahan server internal."
	default:
		return "Terjadi kesalahan yang tidak terduga."
	}
}
