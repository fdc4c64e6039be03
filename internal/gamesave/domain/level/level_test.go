package level

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"LevelVault/internal/gamesave/domain/object"
	"LevelVault/internal/gamesave/domain/wire"
	"LevelVault/modules/kit/errx"
)

func newCodec() *object.Codec {
	return object.NewCodec(object.NewRegistry())
}

func addBlock(p *Payload, x, y float32, groups ...int16) *object.Object {
	o := p.Objects.Registry().New(1)
	o.X, o.Y = x, y
	o.Groups = groups
	p.Objects.Add(o)
	return o
}

func TestBandOf_色带判定(t *testing.T) {
	cases := []struct {
		color float64
		want  Band
	}{
		{0, BandOrange},
		{0.5, BandTransparent},
		{0.8, BandOrange},
		{0.85, BandOrange},
		{0.9, BandYellow},
		{1.0, BandGreen},
		{1.2, BandOrange},
	}
	for _, c := range cases {
		if got := BandOf(c.color); got != c.want {
			t.Fatalf("color=%v 期望 %s 实际 %s", c.color, c.want, got)
		}
	}
}

func TestGuidelines_排序与末尾波浪号(t *testing.T) {
	gs, err := DecodeGuidelines("3~0.9~1~0.8~1~0~")
	if err != nil {
		t.Fatalf("解码失败: %v", err)
	}
	want := []Guideline{{1, 0}, {1, 0.8}, {3, 0.9}}
	if len(gs) != len(want) {
		t.Fatalf("数量不对: %v", gs)
	}
	for i := range want {
		if gs[i] != want[i] {
			t.Fatalf("第 %d 条期望 %v 实际 %v", i, want[i], gs[i])
		}
	}
	if got := EncodeGuidelines(gs); got != "1~0~1~0.8~3~0.9" {
		t.Fatalf("编码结果不对: %q", got)
	}

	unsorted := []Guideline{{5, 1}, {2, 0.9}}
	_ = EncodeGuidelines(unsorted)
	if unsorted[0].Time != 5 {
		t.Fatalf("编码不应修改入参顺序")
	}

	if _, err := DecodeGuidelines("1~0.9~2"); !errors.Is(err, wire.ErrMalformedWire) {
		t.Fatalf("奇数字段应报格式损坏, err=%v", err)
	}
}

func TestColorChannels_往返(t *testing.T) {
	set := NewColorChannelSet()
	c := NewColorChannel(1)
	c.Red, c.Green, c.Blue = 10, 20, 30
	c.Opacity = 0.3
	c.CopiedID = 3
	c.CopiedHSV = object.HSV{Hue: 12, Saturation: 0.5, Value: 1, ValAdditive: true}
	c.Blending = true
	set.Set(c)
	set.Set(NewColorChannel(1000))

	text := set.Encode()
	if strings.Contains(text, ";") || strings.Contains(text, ",") {
		t.Fatalf("通道文本不能含头部分隔符: %s", text)
	}
	got, err := DecodeColorChannels(text)
	if err != nil {
		t.Fatalf("解码失败: %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("通道数不对: %d", got.Len())
	}
	gc, _ := got.Get(1)
	if *gc != *c {
		t.Fatalf("通道 1 不一致: %+v vs %+v", gc, c)
	}
	if got.CopiesFrom()[1] != 3 {
		t.Fatalf("复制关系丢失")
	}
	if got.Encode() != text {
		t.Fatalf("再次编码不一致")
	}
}

func TestPayload_规范文本逐字节往返(t *testing.T) {
	codec := newCodec()
	p := NewPayload(codec.Registry())
	p.Header.SongOffset = 1.5
	p.Header.Gamemode = 2
	p.Header.Mini = true
	p.Header.Guidelines = []Guideline{{1, 0.9}, {2.5, 1}}
	p.Header.Colors.Set(NewColorChannel(1))
	addBlock(p, 15, 45, 1, 2)
	addBlock(p, 45, 15)

	text := EncodePayload(codec, p)
	back, diag, err := DecodePayload(codec, text)
	if err != nil || !diag.Empty() {
		t.Fatalf("解码失败: %v diag=%+v", err, diag)
	}
	if again := EncodePayload(codec, back); again != text {
		t.Fatalf("往返不一致:\n%s\n%s", text, again)
	}
	if back.Objects.Len() != 2 || back.Objects.GroupCount(1) != 1 {
		t.Fatalf("对象或聚合不对")
	}
}

func TestHeader_固定顺序与未知键保留(t *testing.T) {
	h := NewHeader()
	text := h.Encode()
	if !strings.HasPrefix(text, "kS38,,kA13,0,kA15,0") {
		t.Fatalf("头部顺序不对: %s", text)
	}
	h2, err := DecodeHeader(text + ",kA99,7")
	if err != nil {
		t.Fatalf("解码失败: %v", err)
	}
	if len(h2.Extra) != 1 || h2.Extra[0].Value != "7" {
		t.Fatalf("未知键没有保留: %+v", h2.Extra)
	}
	if h2.Encode() != text+",kA99,7" {
		t.Fatalf("未知键应写在固定键之后")
	}
	if _, err := DecodeHeader("kA13"); !errors.Is(err, wire.ErrMalformedWire) {
		t.Fatalf("奇数字段应报格式损坏")
	}
}

func TestLevel_加载幂等与驱逐回写(t *testing.T) {
	codec := newCodec()
	l := NewEmpty(codec, "demo")
	p, ok := l.Payload()
	if !ok {
		t.Fatalf("新关卡正文应常驻")
	}
	addBlock(p, 1, 2)
	addBlock(p, 3, 4)

	if err := l.EvictPayload(); err != nil {
		t.Fatalf("驱逐失败: %v", err)
	}
	if l.State() != StateEvicted || l.ObjectCount() != 2 {
		t.Fatalf("驱逐后状态=%s count=%d", l.State(), l.ObjectCount())
	}
	if l.Envelope().PayloadRaw() == "" {
		t.Fatalf("脏正文驱逐前应回写 k4")
	}

	if err := l.RequestPayloadLoad(); err != nil {
		t.Fatalf("加载失败: %v", err)
	}
	first, _ := l.Payload()
	if err := l.RequestPayloadLoad(); err != nil {
		t.Fatalf("重复加载应是空操作: %v", err)
	}
	second, _ := l.Payload()
	if first != second {
		t.Fatalf("重复加载不应替换正文")
	}
	if first.Objects.Len() != 2 || l.IsDirty() {
		t.Fatalf("重新加载后 count=%d dirty=%v", first.Objects.Len(), l.IsDirty())
	}
}

func TestLevel_未修改时保留原始k4(t *testing.T) {
	codec := newCodec()
	env := NewEnvelope()
	// 对象里带一个未登记的键
	raw := NewHeader().Encode() + ";1,1,2,30,9999,5;"
	env.SetPayloadRaw(raw)
	env.Set("kZZ", wire.String("keep"))
	l := New(codec, env)

	if err := l.RequestPayloadLoad(); err != nil {
		t.Fatalf("加载失败: %v", err)
	}
	if d := l.Diagnostics(); len(d.UnknownKeys) != 1 {
		t.Fatalf("未知键应进入诊断: %+v", d)
	}
	if err := l.EvictPayload(); err != nil {
		t.Fatalf("驱逐失败: %v", err)
	}
	got := l.Envelope()
	if got.PayloadRaw() != raw {
		t.Fatalf("未修改的正文不应被重写")
	}
	if v, _ := got.Get("kZZ"); v.Text != "keep" {
		t.Fatalf("信封未知键丢失")
	}
}

func TestLevel_钉住不可驱逐(t *testing.T) {
	l := NewEmpty(newCodec(), "pinned")
	l.Pin()
	if !l.IsPinned() {
		t.Fatalf("应处于钉住状态")
	}
	if err := l.EvictPayload(); !errors.Is(err, ErrPinned) {
		t.Fatalf("期望 ErrPinned, err=%v", err)
	}
	l.Unpin()
	l.Unpin()
	if err := l.EvictPayload(); err != nil {
		t.Fatalf("解除钉住后应可驱逐: %v", err)
	}
}

func TestLevel_编辑期间不可驱逐且标记修改(t *testing.T) {
	l := NewEmpty(newCodec(), "busy")
	if err := l.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	err := l.View(func(p *Payload) error {
		if err := l.EvictPayload(); !errors.Is(err, ErrPinned) {
			t.Fatalf("查看期间驱逐应返回 ErrPinned, err=%v", err)
		}
		return nil
	})
	if err != nil || l.IsDirty() {
		t.Fatalf("View 不应标记修改: err=%v dirty=%v", err, l.IsDirty())
	}

	entered, release := make(chan struct{}), make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- l.Edit(func(p *Payload) error {
			close(entered)
			<-release
			addBlock(p, 1, 1, 5)
			return nil
		})
	}()
	<-entered
	if l.ObjectCount() != 0 || !l.IsDirty() {
		t.Fatalf("编辑中应返回已知数量并视为已修改: count=%d", l.ObjectCount())
	}
	snap := make(chan struct{})
	go func() {
		_, _ = l.Snapshot()
		close(snap)
	}()
	select {
	case <-snap:
		t.Fatalf("编辑未结束时 Snapshot 不应完成")
	case <-time.After(20 * time.Millisecond):
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("Edit: %v", err)
	}
	<-snap
	if l.ObjectCount() != 1 {
		t.Fatalf("编辑后对象数应为 1, got %d", l.ObjectCount())
	}

	if err := l.EvictPayload(); err != nil {
		t.Fatalf("驱逐失败: %v", err)
	}
	if err := l.Edit(func(*Payload) error { return nil }); !errors.Is(err, ErrPayloadNotLoaded) {
		t.Fatalf("未常驻时期望 ErrPayloadNotLoaded, err=%v", err)
	}
}

// blockingCipher 在 release 关闭前阻塞解密，用来观察 Loading 状态。
type blockingCipher struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (c *blockingCipher) Decrypt(s string) (string, error) {
	c.once.Do(func() { close(c.entered) })
	<-c.release
	return s, nil
}

func (c *blockingCipher) Encrypt(s string) (string, error) { return s, nil }

func TestLevel_解码在锁外并可等待(t *testing.T) {
	codec := newCodec()
	env := NewEnvelope()
	env.SetName("slow")
	env.SetPayloadRaw(NewHeader().Encode() + ";1,1;")
	bc := &blockingCipher{entered: make(chan struct{}), release: make(chan struct{})}
	l := New(codec, env, WithCipher(bc))

	if err := l.WaitPayload(context.Background()); !errors.Is(err, ErrPayloadNotLoaded) {
		t.Fatalf("未请求加载时期望 ErrPayloadNotLoaded, err=%v", err)
	}

	go func() { _ = l.RequestPayloadLoad() }()
	<-bc.entered

	// 解码进行中，锁应当空闲
	if l.Name() != "slow" || l.State() != StateLoading {
		t.Fatalf("解码期间应能读取信封, state=%s", l.State())
	}
	if err := l.RequestPayloadLoad(); err != nil {
		t.Fatalf("加载中重复请求应直接返回: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := l.WaitPayload(ctx); !errors.Is(err, errx.ErrCanceled) {
		t.Fatalf("取消后期望 ErrCanceled, err=%v", err)
	}

	close(bc.release)
	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	if err := l.WaitPayload(waitCtx); err != nil {
		t.Fatalf("等待加载失败: %v", err)
	}
	if l.State() != StateResident || l.ObjectCount() != 1 {
		t.Fatalf("加载后 state=%s count=%d", l.State(), l.ObjectCount())
	}
}

func TestLevel_损坏正文回退状态(t *testing.T) {
	env := NewEnvelope()
	env.SetPayloadRaw("kA13,abc;")
	l := New(newCodec(), env)
	err := l.RequestPayloadLoad()
	if !errors.Is(err, wire.ErrMalformedWire) {
		t.Fatalf("期望格式损坏, err=%v", err)
	}
	if l.State() != StateEnvelopeOnly {
		t.Fatalf("失败后应回到 EnvelopeOnly, state=%s", l.State())
	}
	if werr := l.WaitPayload(context.Background()); !errors.Is(werr, wire.ErrMalformedWire) {
		t.Fatalf("等待应返回上次的加载错误, err=%v", werr)
	}
}

func TestLevel_导出导入gmd(t *testing.T) {
	codec := newCodec()
	l := NewEmpty(codec, "Stereo & <Madness>")
	l.UpdateEnvelope(func(e *Envelope) {
		e.SetDescription("hello")
		e.SetCamera(10, 20, 1)
	})
	p, _ := l.Payload()
	addBlock(p, 5, 6, 9)

	text, err := l.ToWireText()
	if err != nil {
		t.Fatalf("导出失败: %v", err)
	}
	back, err := FromWireText(codec, text)
	if err != nil {
		t.Fatalf("导入失败: %v", err)
	}
	if back.Name() != "Stereo & <Madness>" || back.Envelope().Description() != "hello" {
		t.Fatalf("信封字段不一致: %s", back.Envelope())
	}
	if x, y, zoom := back.Envelope().Camera(); x != 10 || y != 20 || zoom != 1 {
		t.Fatalf("镜头不一致: %v %v %v", x, y, zoom)
	}
	if err := back.RequestPayloadLoad(); err != nil {
		t.Fatalf("加载失败: %v", err)
	}
	bp, _ := back.Payload()
	if bp.Objects.Len() != 1 || bp.Objects.GroupCount(9) != 1 {
		t.Fatalf("正文不一致")
	}
}

func TestLevel_Clone互不影响(t *testing.T) {
	l := NewEmpty(newCodec(), "origin")
	p, _ := l.Payload()
	addBlock(p, 1, 1)
	l.Pin()

	c := l.Clone()
	if c.IsPinned() {
		t.Fatalf("克隆不应继承钉住状态")
	}
	cp, _ := c.Payload()
	addBlock(cp, 2, 2)
	if p.Objects.Len() != 1 || cp.Objects.Len() != 2 {
		t.Fatalf("克隆后应独立: %d %d", p.Objects.Len(), cp.Objects.Len())
	}
}
