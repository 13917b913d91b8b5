package pipeline

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"automl/ml"
)

var ErrDataQuality = errors.New("data quality check failed")

const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// CleaningRule 清洗规则
type CleaningRule interface {
	Apply(table *ml.Table) []QualityIssue
	Name() string
}

// QualityIssue 质量问题
type QualityIssue struct {
	Type     string `json:"type" yaml:"type"`
	Severity string `json:"severity" yaml:"severity"` // low, medium, high
	Message  string `json:"message" yaml:"message"`
	Column   string `json:"column,omitempty" yaml:"column,omitempty"`
}

// DataCleaner 数据清洗器
type DataCleaner struct {
	rules []CleaningRule

	stats     CleaningStats
	statsLock sync.RWMutex
}

// CleaningStats 清洗统计
type CleaningStats struct {
	TablesProcessed int64            `json:"tables_processed"`
	Passed          int64            `json:"passed"`
	Rejected        int64            `json:"rejected"`
	Issues          map[string]int64 `json:"issues"`
	LastClean       time.Time        `json:"last_clean"`
}

// NewDataCleaner 创建数据清洗器
func NewDataCleaner() *DataCleaner {
	cleaner := &DataCleaner{
		rules: make([]CleaningRule, 0),
		stats: CleaningStats{
			Issues: make(map[string]int64),
		},
	}

	// 添加默认规则
	cleaner.AddRule(NewEmptyTableRule())
	cleaner.AddRule(NewDuplicateColumnRule())
	cleaner.AddRule(NewMissingValueRule())
	cleaner.AddRule(NewConstantColumnRule())

	return cleaner
}

// AddRule 添加清洗规则
func (dc *DataCleaner) AddRule(rule CleaningRule) {
	dc.rules = append(dc.rules, rule)
	logger.Debug("added cleaning rule", zap.String("rule", rule.Name()))
}

// Clean checks the table against every rule. High severity issues are
// combined into the returned error; all issues are returned either way.
func (dc *DataCleaner) Clean(table *ml.Table) ([]QualityIssue, error) {
	var issues []QualityIssue
	var err error

	for _, rule := range dc.rules {
		for _, issue := range rule.Apply(table) {
			issues = append(issues, issue)
			if issue.Severity == SeverityHigh {
				err = multierr.Append(err, fmt.Errorf("%s: %s", issue.Type, issue.Message))
			}
		}
	}

	dc.statsLock.Lock()
	dc.stats.TablesProcessed++
	for _, issue := range issues {
		dc.stats.Issues[issue.Type]++
	}
	if err != nil {
		dc.stats.Rejected++
	} else {
		dc.stats.Passed++
	}
	dc.stats.LastClean = time.Now()
	dc.statsLock.Unlock()

	for _, issue := range issues {
		logger.Info("quality issue",
			zap.String("rule", issue.Type),
			zap.String("severity", issue.Severity),
			zap.String("column", issue.Column),
			zap.String("message", issue.Message),
		)
	}
	if err != nil {
		return issues, fmt.Errorf("%w: %w", ErrDataQuality, err)
	}
	return issues, nil
}

// GetStats 获取统计信息
func (dc *DataCleaner) GetStats() CleaningStats {
	dc.statsLock.RLock()
	defer dc.statsLock.RUnlock()

	stats := dc.stats
	stats.Issues = make(map[string]int64, len(dc.stats.Issues))
	for key, count := range dc.stats.Issues {
		stats.Issues[key] = count
	}
	return stats
}

// ============ 清洗规则实现 ============

// EmptyTableRule 空表检测规则
type EmptyTableRule struct{}

func NewEmptyTableRule() *EmptyTableRule { return &EmptyTableRule{} }

func (r *EmptyTableRule) Name() string { return "empty_table" }

func (r *EmptyTableRule) Apply(table *ml.Table) []QualityIssue {
	switch {
	case len(table.Columns) == 0:
		return []QualityIssue{{Type: r.Name(), Severity: SeverityHigh, Message: "table has no columns"}}
	case table.Rows() == 0:
		return []QualityIssue{{Type: r.Name(), Severity: SeverityHigh, Message: "table has no rows"}}
	}
	return nil
}

// DuplicateColumnRule 重复列检测规则
type DuplicateColumnRule struct{}

func NewDuplicateColumnRule() *DuplicateColumnRule { return &DuplicateColumnRule{} }

func (r *DuplicateColumnRule) Name() string { return "duplicate_column" }

func (r *DuplicateColumnRule) Apply(table *ml.Table) []QualityIssue {
	var issues []QualityIssue
	seen := make(map[string]struct{}, len(table.Columns))
	for _, col := range table.Columns {
		if _, exists := seen[col.Name]; exists {
			issues = append(issues, QualityIssue{
				Type:     r.Name(),
				Severity: SeverityHigh,
				Message:  fmt.Sprintf("duplicate column name %q", col.Name),
				Column:   col.Name,
			})
			continue
		}
		seen[col.Name] = struct{}{}
	}
	return issues
}

// MissingValueRule 缺失值检测规则
type MissingValueRule struct {
	Markers []string
}

func NewMissingValueRule() *MissingValueRule {
	return &MissingValueRule{
		Markers: []string{"", "na", "n/a", "nan", "null", "none"},
	}
}

func (r *MissingValueRule) Name() string { return "missing_value" }

func (r *MissingValueRule) Apply(table *ml.Table) []QualityIssue {
	markers := make(map[string]struct{}, len(r.Markers))
	for _, marker := range r.Markers {
		markers[strings.ToLower(marker)] = struct{}{}
	}

	var issues []QualityIssue
	for _, col := range table.Columns {
		missing := 0
		for _, value := range col.Values {
			if _, ok := markers[strings.ToLower(strings.TrimSpace(value))]; ok {
				missing++
			}
		}
		if missing > 0 {
			issues = append(issues, QualityIssue{
				Type:     r.Name(),
				Severity: SeverityHigh,
				Message:  fmt.Sprintf("%d of %d values missing", missing, col.Len()),
				Column:   col.Name,
			})
		}
	}
	return issues
}

// ConstantColumnRule 常量列检测规则
type ConstantColumnRule struct{}

func NewConstantColumnRule() *ConstantColumnRule { return &ConstantColumnRule{} }

func (r *ConstantColumnRule) Name() string { return "constant_column" }

func (r *ConstantColumnRule) Apply(table *ml.Table) []QualityIssue {
	var issues []QualityIssue
	for _, col := range table.Columns {
		if col.Len() < 2 {
			continue
		}
		constant := true
		for _, value := range col.Values[1:] {
			if value != col.Values[0] {
				constant = false
				break
			}
		}
		if constant {
			issues = append(issues, QualityIssue{
				Type:     r.Name(),
				Severity: SeverityLow,
				Message:  fmt.Sprintf("every value is %q", col.Values[0]),
				Column:   col.Name,
			})
		}
	}
	return issues
}
