package handle

import "testing"

func BenchmarkAllocateRelease(b *testing.B) {
	a := NewAllocator(WithCapacity(1024))
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		h, err := a.Allocate()
		if err != nil {
			b.Fatal(err)
		}
		if err = a.Release(h); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkIsValid(b *testing.B) {
	a := NewAllocator(WithCapacity(1024))
	handles := make([]Handle, 1024)
	for i := range handles {
		handles[i], _ = a.Allocate()
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if !a.IsValid(handles[i&1023]) {
			b.Fatal("unexpected invalid handle")
		}
	}
}
