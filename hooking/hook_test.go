package hooking

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

var _ = Describe("HookableBase", func() {
	var (
		mockCtrl *gomock.Controller
		base     *HookableBase
		pos      *HookPos
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		base = NewHookableBase()
		pos = &HookPos{Name: "Test"}
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should invoke hooks in order", func() {
		hook1 := NewMockHook(mockCtrl)
		hook2 := NewMockHook(mockCtrl)
		ctx := HookCtx{Domain: base, Pos: pos, Now: 3, Item: "item"}

		first := hook1.EXPECT().Func(ctx)
		hook2.EXPECT().Func(ctx).After(first)

		base.AcceptHook(hook1)
		base.AcceptHook(hook2)
		base.InvokeHook(ctx)

		Expect(base.NumHooks()).To(Equal(2))
		Expect(base.Hooks()).To(HaveLen(2))
	})

	It("should panic on duplicated hooks", func() {
		hook := NewMockHook(mockCtrl)
		base.AcceptHook(hook)

		Expect(func() { base.AcceptHook(hook) }).To(Panic())
	})

	It("should accept plain functions", func() {
		var seen []int

		base.AcceptHook(HookFunc(func(ctx HookCtx) { seen = append(seen, ctx.Now) }))
		base.AcceptHook(HookFunc(func(ctx HookCtx) { seen = append(seen, -ctx.Now) }))
		base.InvokeHook(HookCtx{Pos: pos, Now: 7})

		Expect(seen).To(Equal([]int{7, -7}))
	})
})
