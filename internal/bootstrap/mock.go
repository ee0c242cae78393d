package bootstrap

// Canned model responses for running without upstream credentials.
// Shapes mirror what the real backends return so the full pipeline,
// including parsing and the ledger, is exercised end to end.

const mockFirstPassResponse = `{
  "analysis": [
    {
      "clause_id": "第一條",
      "clause_text": "甲方可在任何時間單方面終止合約",
      "risks": [
        {
          "risk_description": "單方終止權利顯失公平，乙方欠缺對等保障",
          "severity": "高",
          "legal_basis": "民法第247-1條",
          "recommendation": "約定合理的終止事由與預告期間"
        }
      ]
    }
  ],
  "summary": {
    "high_risks_count": 1,
    "medium_risks_count": 0,
    "low_risks_count": 0,
    "overall_risk_assessment": "此合約存在高風險條款，建議修訂後再簽署"
  }
}`

const mockJudgeResponse = `{
  "quality_score": 8,
  "feedback": "分析涵蓋主要風險，法律依據引用正確",
  "missing_risks": [],
  "improvement_suggestions": "",
  "needs_improvement": false
}`
