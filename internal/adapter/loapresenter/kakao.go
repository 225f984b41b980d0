package loapresenter

import "strings"

const (
	kakaoSeeMorePadding = 500
	kakaoZeroWidthSpace = "​"
)

// 카카오톡 '전체보기'용 제로폭 문자를 채워 긴 본문을 접는다.
func applySeeMorePadding(text, instruction string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	message := strings.TrimSpace(instruction)

	var b strings.Builder
	b.Grow(len(text) + kakaoSeeMorePadding*len(kakaoZeroWidthSpace) + len(message) + 1)
	b.WriteString(message)
	b.WriteString(strings.Repeat(kakaoZeroWidthSpace, kakaoSeeMorePadding))
	if !strings.HasPrefix(text, "\n") {
		b.WriteByte('\n')
	}
	b.WriteString(text)
	return b.String()
}

// 첫 줄에 중복된 헤더가 있으면 제거한다.
func stripLeadingHeader(text, header string) string {
	if strings.TrimSpace(text) == "" || strings.TrimSpace(header) == "" {
		return text
	}
	for _, candidate := range []string{header + "\r\n\r\n", header + "\n\n", header + "\r\n", header + "\n", header} {
		if strings.HasPrefix(text, candidate) {
			return strings.TrimPrefix(text, candidate)
		}
	}
	return text
}

// 헤더를 '전체보기' 위로 올리고 본문은 접힌 영역에 둔다.
func seeMoreWithHeader(text, header string) string {
	if strings.TrimSpace(text) == "" {
		return text
	}
	return applySeeMorePadding(stripLeadingHeader(text, header), header)
}
