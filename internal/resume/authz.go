package resume

// Authorize 检查请求者的访问权限。
// 写操作只允许所有者；读操作允许所有者以及非 private 的简历。
// 越权返回 ErrAccessDenied，而不是静默返回空结果。
func Authorize(r *Resume, requesterID uint, forWrite bool) error {
	if requesterID == r.OwnerID {
		return nil
	}
	if forWrite {
		return ErrAccessDenied
	}
	if r.Visibility == VisibilityPrivate {
		return ErrAccessDenied
	}
	return nil
}

// CountsView 判断一次读取是否应计入浏览量：
// 只有非所有者读取 public 简历时计数，owner 自读与 unlisted 读取不计。
func CountsView(r *Resume, requesterID uint) bool {
	return requesterID != r.OwnerID && r.Visibility == VisibilityPublic
}
