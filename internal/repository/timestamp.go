package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/spf13/cast"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StorePrecision は保存するタイムスタンプの精度。
// MongoDBのdatetimeはミリ秒、PostgreSQLのTIMESTAMPTZはマイクロ秒までのため、粗い方に合わせる。
const StorePrecision = time.Millisecond

// StoreTime はtをUTCに変換し、StorePrecisionに切り捨てる。
// 書き込み前にこれを通すことで、作成時に返す値と後から読み出す値が一致する。
func StoreTime(t time.Time) time.Time {
	return t.UTC().Truncate(StorePrecision)
}

// NormalizeTimestamp はストアから読み出したタイムスタンプをUTCのtime.Timeに正規化する。
// 書き込み経路の違いにより、ISO-8601文字列（タイムゾーンなしを含む）と
// ネイティブの日時型のどちらも格納されている可能性がある。
// タイムゾーン情報を持たない値はUTCとして解釈する。
func NormalizeTimestamp(v any) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, fmt.Errorf("timestamp is missing")
	case time.Time:
		return t.UTC(), nil
	case *time.Time:
		if t == nil {
			return time.Time{}, fmt.Errorf("timestamp is missing")
		}
		return t.UTC(), nil
	case primitive.DateTime:
		return t.Time().UTC(), nil
	case primitive.Timestamp:
		return time.Unix(int64(t.T), 0).UTC(), nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return time.Time{}, fmt.Errorf("timestamp is empty")
		}
		parsed, err := dateparse.ParseIn(s, time.UTC)
		if err != nil {
			return time.Time{}, fmt.Errorf("failed to parse timestamp %q: %w", s, err)
		}
		return parsed.UTC(), nil
	default:
		parsed, err := cast.ToTimeInDefaultLocationE(v, time.UTC)
		if err != nil {
			return time.Time{}, fmt.Errorf("unsupported timestamp value %T: %w", v, err)
		}
		return parsed.UTC(), nil
	}
}
