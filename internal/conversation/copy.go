package conversation

// Customer-facing notification copy.
const (
	titleVoiceOrder   = "음성 주문"
	msgGreeting       = "안녕하세요, 손님, 오늘은 무엇을 주문하실건가요?"
	titleOrderAdded   = "주문 추가 완료"
	fmtOrderAdded     = "네, 알겠습니다! %s 주문목록에 추가되었습니다! 혹시 다른 메뉴는 필요 없으신가요?"
	titleAnswer       = "답변"
	titleStaffCall    = "직원 호출"
	titleCompleted    = "주문 완료"
	msgVoiceCompleted = "네 알겠습니다! 맛있게 준비해드리겠습니다"
	msgTouchCompleted = "주문이 완료되었습니다! 감사합니다."
	titleCancelled    = "주문 취소"
	msgCancelled      = "주문이 취소되었습니다. 처음 화면으로 돌아갑니다."
	titleError        = "오류"
	msgNotUnderstood  = "죄송합니다, 잘 이해하지 못했어요. 다시 말씀해주시겠어요?"
	msgProcessingErr  = "요청 처리 중 오류가 발생했습니다."
	titleOrderError   = "주문 오류"
	msgEmptyOrder     = "주문할 메뉴를 선택해주세요."

	indicatorListening  = "음성 인식 중..."
	indicatorProcessing = "주문 처리 중..."
)
