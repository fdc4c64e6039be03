package app

type Reason struct {
	Code    string
	Message string
}

func (r Reason) ReasonCode() string {
	return r.Code
}

func NewReason(c, m string) Reason {
	return Reason{
		Code:    c,
		Message: m,
	}
}

var (
	// 业务拒绝 reason，接口层原样透出给调用方。
	ReasonIndexOutOfRange = NewReason("LEVEL_INDEX_OUT_OF_RANGE", "关卡下标越界")
	ReasonUnknownIDKind   = NewReason("UNKNOWN_ID_KIND", "未知的 id 类别")
	ReasonDirtyOnReload   = NewReason("DIRTY_ON_RELOAD", "有未保存修改时拒绝重新读入")
	ReasonLevelsSkipped   = NewReason("LEVELS_SKIPPED", "存档中有关卡解析失败被跳过")
)

var (
	// 技术错误 reason，用于日志与排障。
	ReasonSaveFileReadFail     = NewReason("SAVE_FILE_READ_FAIL", "存档文件读取失败")
	ReasonSaveFileWriteFail    = NewReason("SAVE_FILE_WRITE_FAIL", "存档文件写入失败")
	ReasonSnapshotRepoUnavail  = NewReason("SNAPSHOT_REPO_UNAVAILABLE", "快照存储库不可用")
	ReasonIndexRepoUnavailable = NewReason("INDEX_REPO_UNAVAILABLE", "索引存储库不可用")
	ReasonEncodeFail           = NewReason("SAVE_ENCODE_FAIL", "存档编码失败")
)
