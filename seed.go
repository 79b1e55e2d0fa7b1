package main

// sampleDocuments is a small starter corpus so the pipeline can be exercised
// before any real documents are added.
var sampleDocuments = map[string]string{
	"ndas/sample_nda.txt": `NON-DISCLOSURE AGREEMENT

This Non-Disclosure Agreement ("Agreement") is entered into between the parties for the purpose of preventing the unauthorized disclosure of Confidential Information.

1. DEFINITION OF CONFIDENTIAL INFORMATION
Confidential Information means any and all non-public, proprietary or confidential information, including but not limited to:
- Technical data, trade secrets, know-how, research, product plans
- Business information, customer lists, financial information
- Any other information that should reasonably be recognized as confidential

2. OBLIGATIONS OF RECEIVING PARTY
The Receiving Party agrees to:
- Hold and maintain the Confidential Information in strict confidence
- Not disclose the Confidential Information to third parties
- Use the Confidential Information solely for the Purpose

3. TERM
This Agreement shall remain in effect for a period of [X] years from the date of execution.

4. GOVERNING LAW
This Agreement shall be governed by the laws of [Jurisdiction].
`,
	"contracts/service_agreement.txt": `SERVICE AGREEMENT

This Service Agreement governs the provision of services between the parties.

1. SCOPE OF SERVICES
The Service Provider agrees to provide the following services:
- Professional consulting services
- Technical support and maintenance
- Training and documentation

2. PAYMENT TERMS
- Payment shall be made within 30 days of invoice
- Late payments may incur interest charges
- All fees are non-refundable unless otherwise specified

3. LIABILITY LIMITATIONS
IN NO EVENT SHALL EITHER PARTY BE LIABLE FOR INDIRECT, INCIDENTAL, SPECIAL, CONSEQUENTIAL OR PUNITIVE DAMAGES.

4. INTELLECTUAL PROPERTY
All intellectual property rights shall remain with the respective owners.

5. TERMINATION
Either party may terminate this agreement with 30 days written notice.
`,
	"employment/employment_agreement.txt": `EMPLOYMENT AGREEMENT

This Employment Agreement establishes the terms of employment between the Company and Employee.

1. POSITION AND DUTIES
Employee shall serve in the capacity of [Title] and perform duties as assigned.

2. COMPENSATION
- Base salary of $[Amount] per year
- Eligible for annual bonus based on performance
- Standard benefits package including health insurance

3. CONFIDENTIALITY
Employee agrees to maintain confidentiality of all proprietary information.

4. NON-COMPETE
Employee agrees not to compete with Company for [X] months after termination.

5. TERMINATION
Employment may be terminated by either party with appropriate notice.
`,
}
