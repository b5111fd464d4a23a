// Package cleanup は期限切れセッションの一括削除ジョブを提供する。
// purge-sessionsサブコマンドから単発で実行する。serveは定期実行を行わず、
// 期限切れセッションは通常、トークン解決時に個別に削除される。
package cleanup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// SessionPurger は期限切れセッションの一括削除を抽象化するインターフェース。
type SessionPurger interface {
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

// SessionPurgeJob は期限切れセッションの削除ジョブ。
// 削除対象がない場合もエラーにならない。
type SessionPurgeJob struct {
	purger SessionPurger
	logger *slog.Logger
}

// NewSessionPurgeJob は新しいSessionPurgeJobを生成する。
func NewSessionPurgeJob(purger SessionPurger, logger *slog.Logger) *SessionPurgeJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionPurgeJob{
		purger: purger,
		logger: logger,
	}
}

// Run は期限切れセッションを1回削除し、削除件数を返す。
func (j *SessionPurgeJob) Run(ctx context.Context) (int64, error) {
	start := time.Now()

	deleted, err := j.purger.PurgeExpiredSessions(ctx)
	if err != nil {
		j.logger.Error("セッション削除ジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return 0, fmt.Errorf("期限切れセッションの削除に失敗: %w", err)
	}

	j.logger.Info("セッション削除ジョブが完了しました",
		slog.Int64("deleted_count", deleted),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)

	return deleted, nil
}
