package chat

import (
	"fmt"
	"strings"

	"clientbook/internal/ingest"
	"clientbook/internal/reconcile"
)

const helpText = "欢迎！请发送客户的手机号码，我将检查是否重复。\n" +
	"请以“+国家区号+号码”格式发送，仅数字，例如美国 “+11234567890”，英国 “+441234567890”。\n" +
	"批量添加：/batch 后每行一个号码。导出：/export [xlsx|csv]。导入：发送文件并附上 /import。\n\n" +
	"Welcome! Please send the customer's phone number. I will check for duplicates.\n" +
	"Use format: +countrycode+number, digits only, e.g., US “+11234567890”, UK “+441234567890”.\n" +
	"Batch: /batch followed by one number per line. Export: /export [xlsx|csv]. Import: send a file captioned /import."

const batchUsage = "⚠️ 用法：\n" +
	"/batch <每行一个号码>\n" +
	"例如：\n" +
	"/batch\n" +
	"+11234567890\n" +
	"+441234567890\n\n" +
	"Usage: /batch followed by one number per line."

const importUsage = "⚠️ 请发送 Excel 或 CSV 文件并附上 /import。\n" +
	"Send an .xlsx or .csv file with the caption /import."

const invalidReply = "❌ 无效格式。请输入以“+”开头加国家区号的号码，仅数字，" +
	"例如美国 “+11234567890”，英国 “+441234567890”。\n" +
	"❌ Invalid format. Must start with '+', followed by 7–15 digits, e.g., +11234567890 or +441234567890."

const failureReply = "🚨 操作失败，请稍后重试。\nSomething went wrong, please try again later."

const exportCaption = "✅ 数据已导出，见附件。\n✅ Data has been exported. See attached file."

func singleReply(res ingest.Result) string {
	switch res.Outcome {
	case ingest.Added:
		return fmt.Sprintf("✅ 号码已保存！\nThe number has been saved.\n📱 %s", res.Number)
	case ingest.Duplicate:
		return fmt.Sprintf("⚠️ 该号码已存在。\nThe number already exists.\n📱 %s", res.Number)
	default:
		return invalidReply
	}
}

func batchReply(res ingest.BatchResult) string {
	var b strings.Builder
	b.WriteString("📋 批量导入结果 Batch Import Result:\n\n")
	if len(res.Added) > 0 {
		b.WriteString("✅ 已添加 Added:\n" + strings.Join(res.Added, "\n") + "\n\n")
	}
	if len(res.Duplicate) > 0 {
		b.WriteString("🚨 已存在 (跳过) Already Exists (Skipped):\n" + strings.Join(res.Duplicate, "\n") + "\n\n")
	}
	if len(res.Invalid) > 0 {
		b.WriteString("⚠️ 无效格式 Invalid Format:\n" + strings.Join(res.Invalid, "\n"))
	}
	return strings.TrimRight(b.String(), "\n")
}

func batchTooLargeReply(limit int) string {
	return fmt.Sprintf("⚠️ 一次最多提交 %d 个号码。\nA batch may contain at most %d numbers.", limit, limit)
}

func importReply(summary reconcile.ImportSummary) string {
	return fmt.Sprintf("✅ 数据导入成功！新增 %d，已存在 %d，跳过 %d。\nData import successful! %s",
		summary.Added, summary.Duplicates, summary.Skipped, summary.Summary())
}

func importFailedReply(reason string) string {
	return fmt.Sprintf("🚨 导入失败: %s\nImport failed: %s", reason, reason)
}

func unsupportedFormatReply(value string) string {
	return fmt.Sprintf("⚠️ 不支持的格式 %q，请使用 xlsx 或 csv。\nUnsupported format %q, use xlsx or csv.", value, value)
}
