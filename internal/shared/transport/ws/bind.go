package ws

import (
	"errors"

	"github.com/go-viper/mapstructure/v2"
)

// BindMsg 把 WsMsgReq.Body.Msg（JSON 解出来的 map）解码到 dst，数字字符串按弱类型转换。
func BindMsg(req *WsMsgReq, dst any) error {
	if req == nil || req.Body == nil {
		return errors.New("ws request body is nil")
	}
	if req.Body.Msg == nil {
		return nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           dst,
	})
	if err != nil {
		return err
	}
	return dec.Decode(req.Body.Msg)
}
