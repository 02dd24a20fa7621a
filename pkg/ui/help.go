package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type helpSection struct {
	title string
	keys  [][2]string
}

var helpSections = []helpSection{
	{"浏览", [][2]string{
		{"j/k ↑/↓", "上下移动"},
		{"g/G", "首项 / 末项"},
		{"ctrl+d/u", "翻半页"},
		{"v", "切换列表视图 / 树状视图"},
		{"tab", "显示或隐藏详情"},
	}},
	{"树状视图", [][2]string{
		{"enter/space", "展开或收起"},
		{"l/→", "展开 / 进入子女"},
		{"h/←", "收起 / 回到父亲"},
		{"E", "全部展开或收起"},
	}},
	{"搜索", [][2]string{
		{"/", "输入搜索词"},
		{"f", "筛选面板"},
		{"c", "清除搜索"},
	}},
	{"其他", [][2]string{
		{"y", "复制成员 ID"},
		{"r", "重新加载数据"},
		{"O", "退出登录"},
		{"q", "退出"},
	}},
}

func (m Model) renderHelpOverlay() string {
	t := m.theme
	var sb strings.Builder
	sb.WriteString(t.Title.Render("快捷键"))
	sb.WriteString("\n")
	keyStyle := t.PrimaryBold.Width(14)
	for _, s := range helpSections {
		sb.WriteString("\n")
		sb.WriteString(t.SecondaryText.Bold(true).Render(s.title))
		sb.WriteString("\n")
		for _, k := range s.keys {
			sb.WriteString("  ")
			sb.WriteString(keyStyle.Render(k[0]))
			sb.WriteString(k[1])
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\n")
	sb.WriteString(t.MutedText.Render("按任意键关闭"))

	box := FocusedPanelStyle.Padding(1, 3).Render(sb.String())
	return lipgloss.Place(m.width, max(1, m.height-1), lipgloss.Center, lipgloss.Center, box)
}
