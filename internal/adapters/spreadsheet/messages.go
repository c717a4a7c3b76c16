package spreadsheet

// User-facing messages.
const (
	MsgUnsupportedFormat = "엑셀 또는 CSV 파일(.xlsx, .xls, .csv)만 업로드 가능합니다."
	MsgEmptyWorkbook     = "엑셀 파일에 데이터가 없습니다."
	MsgMultipleSheets    = "시트가 여러 개인 .xls 파일은 지원하지 않습니다. 시트를 하나만 남겨 주세요."
	MsgMissingDateColumn = "'기준년월' 또는 'reference_date' 컬럼이 필요합니다."
	MsgMissingStudentID  = "'학번' 또는 'student_id' 컬럼이 필요합니다."
	MsgNoReferenceDates  = "기준 년월 데이터가 없습니다."
	MsgNoValidRows       = "처리할 유효한 데이터가 없습니다."
)
