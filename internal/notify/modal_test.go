package notify

import "testing"

func TestOpenReplacesContent(t *testing.T) {
	m := New()
	g1 := m.Open("답변", "first")
	g2 := m.Open("직원 호출", "second")
	if g2 <= g1 {
		t.Fatalf("generation should advance, got %d then %d", g1, g2)
	}
	if m.Title() != "직원 호출" || m.Message() != "second" || !m.IsOpen() {
		t.Fatalf("expected second notification to replace first, got %+v", m.View())
	}
}

func TestCloseReportsPriorState(t *testing.T) {
	m := New()
	if m.Close() {
		t.Fatalf("closing an empty modal should report false")
	}
	m.Open("오류", "x")
	if !m.Close() {
		t.Fatalf("closing an open modal should report true")
	}
	if m.IsOpen() {
		t.Fatalf("modal should be closed")
	}
}

func TestParagraphs(t *testing.T) {
	m := New()
	m.Open("주문 확인", "돼지국밥 2개\n수육 한접시 1개")
	p := m.Paragraphs()
	if len(p) != 2 || p[1] != "수육 한접시 1개" {
		t.Fatalf("unexpected paragraphs %q", p)
	}
}
