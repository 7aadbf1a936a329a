package market

import "context"

// Source 行情提供方。瞬时不可用时返回 (nil, error)，由调用方退避重试。
type Source interface {
	Fetch(ctx context.Context) (*Snapshot, error)
}
