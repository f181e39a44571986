package report

import (
	"fmt"
	"time"

	"juku-import/internal/config"
	"juku-import/internal/model"
	"juku-import/pkg/errors"
)

const (
	CategoryErrors           = "errors"
	CategoryValidationErrors = "validation_errors"
	CategoryMissingData      = "missing_data"
	CategoryWarnings         = "warnings"

	msgServerError = "サーバーエラーが発生しました"
	msgBadRequest  = "リクエストが不正です"
	msgUnavailable = "サーバーに接続できませんでした"
	msgFailed      = "インポートに失敗しました"
	msgInterrupted = "インポートが中断されました"
)

var categoryTitles = map[string]string{
	CategoryErrors:           "エラー",
	CategoryValidationErrors: "検証エラー",
	CategoryMissingData:      "未入力データ",
	CategoryWarnings:         "警告",
}

type Limits struct {
	Toast    int
	Panel    int
	Duration time.Duration
}

func LimitsFromConfig(cfg config.ReportConfig) Limits {
	return Limits{
		Toast:    cfg.ToastLimit,
		Panel:    cfg.PanelLimit,
		Duration: cfg.ToastDuration,
	}
}

type category struct {
	name  string
	level model.NotificationLevel
	items []string
}

// Build turns a backend response, or the error that replaced it, into the
// notifications and completion panel shown to the user.
func Build(result *model.ImportResult, err error, limits Limits) *model.Report {
	if err == nil && result != nil && result.Success {
		return buildSuccess(result, limits)
	}
	return buildFailure(result, err, limits)
}

func buildSuccess(result *model.ImportResult, limits Limits) *model.Report {
	succeeded := result.SuccessCount
	if succeeded == 0 {
		succeeded = result.CreatedCount + result.UpdatedCount
	}

	msg := fmt.Sprintf("インポートが完了しました（成功 %d 件 / 失敗 %d 件）", succeeded, result.FailedCount)
	if result.CreatedCount > 0 || result.UpdatedCount > 0 {
		msg += fmt.Sprintf("（新規 %d 件 / 更新 %d 件）", result.CreatedCount, result.UpdatedCount)
	}

	rep := &model.Report{
		Success: true,
		Message: msg,
		Result:  result,
		Notifications: []model.Notification{{
			Level:    model.LevelSuccess,
			Message:  msg,
			Duration: limits.Duration,
		}},
	}

	categories := resultCategories(result)
	for _, c := range categories {
		rep.Notifications = append(rep.Notifications, toasts(c, limits)...)
	}
	rep.Panel = panel(categories, limits)
	return rep
}

func buildFailure(result *model.ImportResult, err error, limits Limits) *model.Report {
	msg := FailureMessage(err)
	if result != nil && result.Message != "" {
		msg = fmt.Sprintf("%s: %s", msg, result.Message)
	}

	rep := &model.Report{
		Success: false,
		Message: msg,
		Result:  result,
		Notifications: []model.Notification{{
			Level:    model.LevelError,
			Message:  msg,
			Duration: 2 * limits.Duration,
		}},
	}
	if result == nil {
		return rep
	}

	errCategory := category{name: CategoryErrors, level: model.LevelError, items: result.Errors}
	rep.Notifications = append(rep.Notifications, toasts(errCategory, limits)...)
	rep.Panel = panel(append([]category{errCategory}, resultCategories(result)...), limits)
	return rep
}

// FailureMessage maps a submission error onto a user-facing message.
func FailureMessage(err error) string {
	switch {
	case errors.Is(err, errors.ErrBackendServer):
		return msgServerError
	case errors.Is(err, errors.ErrBackendBadRequest):
		return msgBadRequest
	case errors.Is(err, errors.ErrInterrupted):
		return msgInterrupted
	case errors.Is(err, errors.ErrBackendUnavailable):
		return msgUnavailable
	}
	return msgFailed
}

func resultCategories(result *model.ImportResult) []category {
	validation := make([]string, len(result.ValidationErrors))
	for i, v := range result.ValidationErrors {
		validation[i] = formatIssue(v)
	}
	missing := make([]string, len(result.MissingData))
	for i, m := range result.MissingData {
		missing[i] = formatMissing(m)
	}

	return []category{
		{name: CategoryValidationErrors, level: model.LevelError, items: validation},
		{name: CategoryMissingData, level: model.LevelWarning, items: missing},
		{name: CategoryWarnings, level: model.LevelWarning, items: result.Warnings},
	}
}

// toasts emits the first items of a category one by one, then a single
// rollup for the remainder.
func toasts(c category, limits Limits) []model.Notification {
	if len(c.items) == 0 {
		return nil
	}

	n := min(len(c.items), limits.Toast)
	out := make([]model.Notification, 0, n+1)
	for _, item := range c.items[:n] {
		out = append(out, model.Notification{
			Level:    c.level,
			Category: c.name,
			Message:  item,
			Duration: limits.Duration,
		})
	}
	if rest := len(c.items) - n; rest > 0 {
		out = append(out, model.Notification{
			Level:    model.LevelInfo,
			Category: c.name,
			Message:  fmt.Sprintf("他 %d 件の%sがあります", rest, categoryTitles[c.name]),
			Duration: limits.Duration,
		})
	}
	return out
}

func panel(categories []category, limits Limits) []model.PanelSection {
	var sections []model.PanelSection
	for _, c := range categories {
		if len(c.items) == 0 {
			continue
		}
		n := min(len(c.items), limits.Panel)
		sections = append(sections, model.PanelSection{
			Category:  c.name,
			Title:     categoryTitles[c.name],
			Items:     append([]string(nil), c.items[:n]...),
			Remaining: len(c.items) - n,
		})
	}
	return sections
}

func formatIssue(v model.ValidationIssue) string {
	prefix := "生徒ID " + v.StudentID
	if v.Row > 0 {
		prefix = fmt.Sprintf("%d行目 %s", v.Row, prefix)
	}
	if v.Subject != "" {
		prefix += "（" + v.Subject + "）"
	}
	return prefix + ": " + v.Message
}

func formatMissing(m model.MissingDataEntry) string {
	s := "生徒ID " + m.StudentID
	if m.StudentName != "" {
		s += " " + m.StudentName
	}
	if m.Subject != "" {
		s += "（" + m.Subject + "）"
	}
	if m.Message != "" {
		s += ": " + m.Message
	}
	return s
}
