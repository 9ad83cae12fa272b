package dto

// QuizQuestionResponseDTO presents one question without its answer.
type QuizQuestionResponseDTO struct {
	ID       string   `json:"id"`
	Category string   `json:"category"`
	Prompt   string   `json:"prompt"`
	Options  []string `json:"options"`
}

type QuizAnswerDTO struct {
	QuestionID  string `json:"question_id" validate:"required"`
	ChosenIndex int    `json:"chosen_index" validate:"gte=0,lte=3"`
}

type QuizSubmitDTO struct {
	Answers []QuizAnswerDTO `json:"answers" validate:"required,min=1,dive"`
}

type QuizCorrectionDTO struct {
	QuestionID  string `json:"question_id"`
	Correct     bool   `json:"correct"`
	AnswerIndex int    `json:"answer_index"`
	Explanation string `json:"explanation,omitempty"`
}

type QuizResultResponseDTO struct {
	Correct      int                 `json:"correct"`
	Total        int                 `json:"total"`
	PointsEarned int                 `json:"points_earned"`
	Perfect      bool                `json:"perfect"`
	Points       int                 `json:"points"`
	Level        int                 `json:"level"`
	Corrections  []QuizCorrectionDTO `json:"corrections"`
}

type QuizProgressResponseDTO struct {
	Points              int    `json:"points"`
	Level               int    `json:"level"`
	QuizzesTaken        int    `json:"quizzes_taken"`
	RecommendedCategory string `json:"recommended_category,omitempty"`
}
