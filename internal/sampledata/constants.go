package sampledata

// Source file base names; each is read as .csv or, failing that, .xlsx.
const (
	SourceKPI          = "department_kpi"
	SourcePublications = "publication_list"
	SourceProjects     = "research_project_data"
)

// Department KPI columns.
const (
	colEvalYear       = "평가년도"
	colCollege        = "단과대학"
	colDepartment     = "학과"
	colEmploymentRate = "졸업생 취업률 (%)"
	colFullTimeStaff  = "전임교원 수 (명)"
	colVisitingStaff  = "초빙교원 수 (명)"
	colTransferIncome = "연간 기술이전 수입액 (억원)"
	colConferences    = "국제학술대회 개최 횟수"
)

// Publication columns.
const (
	colPaperID     = "논문ID"
	colPublishedAt = "게재일"
	colPaperTitle  = "논문제목"
	colJournal     = "학술지명"
)

// Research project columns.
const (
	colExecutionID   = "집행ID"
	colProjectNo     = "과제번호"
	colProjectName   = "과제명"
	colOwnDept       = "소속학과"
	colTotalBudget   = "총연구비"
	colExecutedAt    = "집행일자"
	colExecutionItem = "집행항목"
	colExecuted      = "집행금액"
)

// eokWon is one 억원 in won.
const eokWon = 100_000_000

// sampleFilename is recorded on the upload log of a load run.
const sampleFilename = "sample-data"

const (
	directoryPermission = 0o750
)
