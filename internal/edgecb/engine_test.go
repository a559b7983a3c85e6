package edgecb_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/verilua-run/govpi/internal/edgecb"
	"github.com/verilua-run/govpi/internal/handlecache"
	"github.com/verilua-run/govpi/internal/vpiabi"
	"github.com/verilua-run/govpi/internal/vpibridge"
)

type fakeSub struct {
	id vpibridge.SubscriptionHandle
	fn vpibridge.CallbackFunc
}

type fakeSim struct {
	next    vpiabi.Handle
	nextSub vpibridge.SubscriptionHandle
	byName  map[string]vpiabi.Handle
	subs    map[vpiabi.Handle][]fakeSub
}

func newFakeSim() *fakeSim {
	return &fakeSim{byName: make(map[string]vpiabi.Handle), subs: make(map[vpiabi.Handle][]fakeSub)}
}

func (f *fakeSim) declare(path string) vpiabi.Handle {
	f.next++
	f.byName[path] = f.next
	return f.next
}

func (f *fakeSim) Close() error { return nil }
func (f *fakeSim) HandleByName(path string) (vpiabi.Handle, error) { return f.byName[path], nil }
func (f *fakeSim) HandleByIndex(parent vpiabi.Handle, index int) (vpiabi.Handle, error) {
	return parent, nil
}
func (f *fakeSim) GetWidth(h vpiabi.Handle) (int, error) { return 1, nil }
func (f *fakeSim) GetValue(h vpiabi.Handle, format int32) (vpiabi.Value, error) {
	return vpiabi.Value{}, nil
}
func (f *fakeSim) PutValue(h vpiabi.Handle, value vpiabi.Value, flag int32) error { return nil }
func (f *fakeSim) GetSimTime() (uint64, error)                                   { return 0, nil }
func (f *fakeSim) RegisterCallback(data vpiabi.CallbackData, fn vpibridge.CallbackFunc) (vpibridge.SubscriptionHandle, error) {
	f.nextSub++
	f.subs[data.Obj] = append(f.subs[data.Obj], fakeSub{id: f.nextSub, fn: fn})
	return f.nextSub, nil
}
func (f *fakeSim) RemoveCallback(sub vpibridge.SubscriptionHandle) error {
	for obj, list := range f.subs {
		for i, s := range list {
			if s.id == sub {
				f.subs[obj] = append(list[:i:i], list[i+1:]...)
				return nil
			}
		}
	}
	return nil
}
func (f *fakeSim) Finish() error { return nil }

func (f *fakeSim) trigger(h vpiabi.Handle, scalar uint8) {
	for _, s := range append([]fakeSub(nil), f.subs[h]...) {
		s.fn(vpiabi.CallbackData{Reason: vpiabi.CbValueChange, Obj: h, Value: &vpiabi.Value{Scalar: scalar}})
	}
}

var _ vpibridge.Simulator = (*fakeSim)(nil)

type fakeHost struct {
	fired      []int
	chunkFired [][]int
}

func (h *fakeHost) SimEvent(taskID int) error {
	h.fired = append(h.fired, taskID)
	return nil
}
func (h *fakeHost) SimEventChunk(taskIDs []int) error {
	h.chunkFired = append(h.chunkFired, append([]int(nil), taskIDs...))
	return nil
}

var _ edgecb.ScriptHost = (*fakeHost)(nil)

var _ = Describe("Engine", func() {
	var (
		sim   *fakeSim
		cache *handlecache.Cache
		host  *fakeHost
		clk   handlecache.Token
	)

	BeforeEach(func() {
		sim = newFakeSim()
		sim.declare("top.clk")
		cache = handlecache.NewCache(sim)
		host = &fakeHost{}
		var err error
		clk, err = cache.Lookup("top.clk")
		Expect(err).NotTo(HaveOccurred())
	})

	It("fires posedge only on a rising sample", func() {
		eng := edgecb.NewEngine(cache, sim, host, edgecb.Options{}, 100, nil)
		Expect(eng.Register(clk, edgecb.Posedge, 7, edgecb.OneShot)).To(Succeed())

		h, _ := cache.Get(clk)
		sim.trigger(h.Sim, 0)
		Expect(host.fired).To(BeEmpty())
		sim.trigger(h.Sim, 1)
		Expect(host.fired).To(Equal([]int{7}))
	})

	It("removes a one-shot registration after it fires", func() {
		eng := edgecb.NewEngine(cache, sim, host, edgecb.Options{}, 100, nil)
		Expect(eng.Register(clk, edgecb.Posedge, 7, edgecb.OneShot)).To(Succeed())
		Expect(eng.LiveSubscriptionCount()).To(Equal(1))

		h, _ := cache.Get(clk)
		sim.trigger(h.Sim, 1)
		Expect(eng.LiveSubscriptionCount()).To(Equal(0))

		sim.trigger(h.Sim, 1)
		Expect(host.fired).To(Equal([]int{7}))
	})

	It("defers registration until PromotePending is called", func() {
		eng := edgecb.NewEngine(cache, sim, host, edgecb.Options{Deferred: true}, 100, nil)
		Expect(eng.Register(clk, edgecb.Posedge, 1, edgecb.OneShot)).To(Succeed())
		Expect(eng.LiveSubscriptionCount()).To(Equal(0))

		Expect(eng.PromotePending()).To(Succeed())
		Expect(eng.LiveSubscriptionCount()).To(Equal(1))
	})

	It("merges duplicate registrations into one subscription, torn down only after all refs fire", func() {
		eng := edgecb.NewEngine(cache, sim, host, edgecb.Options{Deferred: true, Merge: true}, 100, nil)
		for i := 0; i < 3; i++ {
			Expect(eng.Register(clk, edgecb.Posedge, 42, edgecb.OneShot)).To(Succeed())
		}
		Expect(eng.PromotePending()).To(Succeed())
		Expect(eng.LiveSubscriptionCount()).To(Equal(1))

		h, _ := cache.Get(clk)

		sim.trigger(h.Sim, 1)
		Expect(eng.LiveSubscriptionCount()).To(Equal(1))

		sim.trigger(h.Sim, 1)
		Expect(eng.LiveSubscriptionCount()).To(Equal(1))

		sim.trigger(h.Sim, 1)
		Expect(eng.LiveSubscriptionCount()).To(Equal(0))

		Expect(host.fired).To(Equal([]int{42, 42, 42}))
	})

	It("chunks 20 task registrations into a 16 and a 4", func() {
		eng := edgecb.NewEngine(cache, sim, host, edgecb.Options{Deferred: true, Chunk: true}, 100, nil)
		for i := 1; i <= 20; i++ {
			Expect(eng.Register(clk, edgecb.Posedge, i, edgecb.OneShot)).To(Succeed())
		}
		Expect(eng.PromotePending()).To(Succeed())
		Expect(eng.LiveSubscriptionCount()).To(Equal(2))

		h, _ := cache.Get(clk)
		sim.trigger(h.Sim, 1)
		Expect(host.chunkFired).To(HaveLen(2))
		Expect(host.chunkFired[0]).To(HaveLen(16))
		Expect(host.chunkFired[1]).To(HaveLen(4))
	})
})
